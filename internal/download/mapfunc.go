package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MapFunc consumes one downloaded body for the destination dest.
type MapFunc func(ctx context.Context, body io.Reader, dest string) (File, error)

// GetFile keeps the body in memory. dest is used as the file's path.
func GetFile(_ context.Context, body io.Reader, dest string) (File, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return File{}, fmt.Errorf("read body: %w", err)
	}
	return File{Path: dest, Content: content}, nil
}

// SaveFile writes the body to dest, creating parent directories. The data
// is written to a temporary file first so dest never holds a partial file.
func SaveFile(_ context.Context, body io.Reader, dest string) (File, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return File{}, fmt.Errorf("create directory: %w", err)
	}

	tmp := dest + ".part-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(tmp)
		return File{}, fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return File{}, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return File{}, fmt.Errorf("rename file: %w", err)
	}
	return File{Path: dest}, nil
}
