// Package filters provides the named file filters that can be applied to a
// job's file listing.
package filters

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/gwdc/gwlab-viterbi-go/internal/models"
)

// ErrUnknownFilter is returned by Lookup for names outside the registry.
var ErrUnknownFilter = errors.New("unknown file filter")

// Filter selects a subset of a file list. Filters are pure and keep order.
type Filter func(models.FileReferenceList) models.FileReferenceList

// Registered filter names.
const (
	Config     = "config"
	Candidates = "candidates"
)

var registry = map[string]Filter{
	Config:     ConfigFiles,
	Candidates: CandidateFiles,
}

// Lookup returns the filter registered under name.
func Lookup(name string) (Filter, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFilter, name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names returns the registered filter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ConfigFiles keeps the .ini job configuration files.
func ConfigFiles(files models.FileReferenceList) models.FileReferenceList {
	return keep(files, func(p string) bool {
		return strings.EqualFold(path.Ext(p), ".ini")
	})
}

// CandidateFiles keeps the search candidate output files.
func CandidateFiles(files models.FileReferenceList) models.FileReferenceList {
	return keep(files, func(p string) bool {
		return strings.Contains(strings.ToLower(path.Base(p)), "candidates")
	})
}

func keep(files models.FileReferenceList, match func(string) bool) models.FileReferenceList {
	out := models.FileReferenceList{}
	for _, ref := range files {
		if match(ref.Path()) {
			out.Append(ref)
		}
	}
	return out
}
