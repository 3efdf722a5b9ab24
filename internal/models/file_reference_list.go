package models

import (
	"fmt"
	"slices"
)

// FileReferenceList is an ordered collection of FileReference values.
// It is not safe for concurrent mutation.
type FileReferenceList []FileReference

// JobBatch holds the references that belong to one job.
type JobBatch struct {
	JobID JobID
	Files FileReferenceList
}

// NewFileReferenceList returns a list holding refs in order.
func NewFileReferenceList(refs ...FileReference) FileReferenceList {
	l := make(FileReferenceList, 0, len(refs))
	return append(l, refs...)
}

// FileReferenceListOf builds a list from untyped items. Every item is
// checked before any is accepted; the first one that is not a
// FileReference fails the whole call with ErrNotFileReference.
func FileReferenceListOf(items ...any) (FileReferenceList, error) {
	l := make(FileReferenceList, 0, len(items))
	for i, item := range items {
		ref, ok := asFileReference(item)
		if !ok {
			return nil, fmt.Errorf("item %d (%T): %w", i, item, ErrNotFileReference)
		}
		l = append(l, ref)
	}
	return l, nil
}

// Append adds ref to the end of the list.
func (l *FileReferenceList) Append(ref FileReference) {
	*l = append(*l, ref)
}

// AppendValue appends item if it is a FileReference (or a non-nil pointer
// to one) and fails with ErrNotFileReference otherwise.
func (l *FileReferenceList) AppendValue(item any) error {
	ref, ok := asFileReference(item)
	if !ok {
		return fmt.Errorf("append %T: %w", item, ErrNotFileReference)
	}
	l.Append(ref)
	return nil
}

// Concat returns a new list with the elements of l followed by others.
func (l FileReferenceList) Concat(others ...FileReferenceList) FileReferenceList {
	n := len(l)
	for _, o := range others {
		n += len(o)
	}
	out := make(FileReferenceList, 0, n)
	out = append(out, l...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// Equal reports whether both lists hold equal references in the same order.
func (l FileReferenceList) Equal(other FileReferenceList) bool {
	return slices.Equal(l, other)
}

// TotalBytes sums the file sizes.
func (l FileReferenceList) TotalBytes() int64 {
	var total int64
	for _, ref := range l {
		total += ref.fileSize
	}
	return total
}

// Tokens returns the download tokens in list order.
func (l FileReferenceList) Tokens() []string {
	tokens := make([]string, len(l))
	for i, ref := range l {
		tokens[i] = ref.downloadToken
	}
	return tokens
}

// Paths returns the relative paths in list order.
func (l FileReferenceList) Paths() []string {
	paths := make([]string, len(l))
	for i, ref := range l {
		paths[i] = ref.path
	}
	return paths
}

// OutputPaths joins each path under root. With preserveStructure false only
// the file name is kept; name collisions are not detected.
func (l FileReferenceList) OutputPaths(root string, preserveStructure bool) []string {
	paths := make([]string, len(l))
	for i, ref := range l {
		paths[i] = ref.OutputPath(root, preserveStructure)
	}
	return paths
}

// BatchedByJob groups the references by job id. Jobs appear in the order
// they are first seen and each batch keeps the original relative order.
func (l FileReferenceList) BatchedByJob() []JobBatch {
	var batches []JobBatch
	index := make(map[JobID]int)
	for _, ref := range l {
		i, ok := index[ref.jobID]
		if !ok {
			i = len(batches)
			index[ref.jobID] = i
			batches = append(batches, JobBatch{JobID: ref.jobID})
		}
		batches[i].Files = append(batches[i].Files, ref)
	}
	return batches
}

// FlattenBatches concatenates the batches back into a single list.
func FlattenBatches(batches []JobBatch) FileReferenceList {
	var out FileReferenceList
	for _, b := range batches {
		out = append(out, b.Files...)
	}
	return out
}

func asFileReference(item any) (FileReference, bool) {
	switch ref := item.(type) {
	case FileReference:
		return ref, true
	case *FileReference:
		if ref == nil {
			return FileReference{}, false
		}
		return *ref, true
	default:
		return FileReference{}, false
	}
}
