// Package common defines shared constants, sentinel errors and typed errors
// used across the weldkeeper document store. Callers should use errors.Is
// and errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Document store errors.
	ErrValidation       = errors.New("validation error")
	ErrDuplicateContent = errors.New("duplicate content")
	ErrPartialCreate    = errors.New("could not save")
	ErrInboxEntryNotNew = errors.New("inbox entry is not new")
	ErrBatchIncomplete  = errors.New("batch upload incomplete")

	// Auth errors (invalid or malformed producer token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError rejects a single file before any network I/O.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.File, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateContentError reports that the uploaded bytes are already
// catalogued. Existing identifies the catalogued record.
type DuplicateContentError struct {
	File       string
	ExistingID string
	Label      string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("duplicate content: %s matches stored file %s (%s)", e.File, e.ExistingID, e.Label)
}

func (e *DuplicateContentError) Is(target error) bool { return target == ErrDuplicateContent }

// PartialCreateError is returned when a step after the object upload fails.
// Relational rows created by earlier steps have been rolled back on a best
// effort basis by the time the caller sees it.
type PartialCreateError struct {
	Step string
	Err  error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("could not save: %s: %v", e.Step, e.Err)
}

func (e *PartialCreateError) Is(target error) bool { return target == ErrPartialCreate }

func (e *PartialCreateError) Unwrap() error { return e.Err }

// BatchAggregateError is returned once at the end of a batch upload. Files
// not listed here were committed.
type BatchAggregateError struct {
	Duplicates []string
	Invalid    []*ValidationError
}

func (e *BatchAggregateError) Error() string {
	var parts []string
	if len(e.Duplicates) > 0 {
		parts = append(parts, "duplicates skipped: "+strings.Join(e.Duplicates, ", "))
	}
	if len(e.Invalid) > 0 {
		names := make([]string, 0, len(e.Invalid))
		for _, v := range e.Invalid {
			names = append(names, fmt.Sprintf("%s (%s)", v.File, v.Reason))
		}
		parts = append(parts, "rejected: "+strings.Join(names, ", "))
	}
	return fmt.Sprintf("%v: %s", ErrBatchIncomplete, strings.Join(parts, "; "))
}

func (e *BatchAggregateError) Is(target error) bool { return target == ErrBatchIncomplete }
