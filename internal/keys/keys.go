// Package keys renames and re-cases the keys of decoded JSON trees.
package keys

import (
	"strings"
	"unicode"
)

// MapKeys walks maps and slices and applies fn to every map key.
// Scalars are returned as-is. The input is never modified; maps and
// slices are always copied.
func MapKeys(v any, fn func(string) string) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fn(k)] = MapKeys(child, fn)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, elem := range node {
			out[i] = MapKeys(elem, fn)
		}
		return out
	case []map[string]any:
		out := make([]any, len(node))
		for i, elem := range node {
			out[i] = MapKeys(elem, fn)
		}
		return out
	default:
		return v
	}
}

// RenameKeys renames keys found in table at every depth. Keys missing from
// table keep their name.
func RenameKeys(v any, table map[string]string) any {
	return MapKeys(v, func(k string) string {
		if renamed, ok := table[k]; ok {
			return renamed
		}
		return k
	})
}

// RenameMap is RenameKeys for a top-level map.
func RenameMap(m map[string]any, table map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	return RenameKeys(m, table).(map[string]any)
}

// ToSnake converts camelCase to snake_case. Every upper-case rune becomes
// an underscore followed by its lower-case form, so "isDir" -> "is_dir".
func ToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamel converts snake_case to camelCase: "download_tokens" -> "downloadTokens".
func ToCamel(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// SnakeKeys converts every key in v to snake_case.
func SnakeKeys(v any) any { return MapKeys(v, ToSnake) }

// CamelKeys converts every key in v to camelCase.
func CamelKeys(v any) any { return MapKeys(v, ToCamel) }
