package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrNotFileReference is returned when something other than a
	// FileReference is added to a FileReferenceList.
	ErrNotFileReference = errors.New("all items in FileReferenceList must be a FileReference")
)

// ValidationError reports a field value that could not be normalized.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %#v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %#v", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
