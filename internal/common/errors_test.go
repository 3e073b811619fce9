package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_IsAndMessage(t *testing.T) {
	err := fmt.Errorf("upload: %w", &ValidationError{File: "a.pdf", Reason: "file is empty"})

	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "a.pdf: file is empty")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "a.pdf", ve.File)
}

func TestPartialCreateError_UnwrapsCause(t *testing.T) {
	cause := errors.New("insert failed")
	err := &PartialCreateError{Step: "link insert", Err: cause}

	assert.ErrorIs(t, err, ErrPartialCreate)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not save: link insert: insert failed", err.Error())
}

func TestDuplicateContentError_Is(t *testing.T) {
	err := &DuplicateContentError{File: "b.pdf", ExistingID: "f1", Label: "a.pdf"}
	assert.ErrorIs(t, err, ErrDuplicateContent)
	assert.Contains(t, err.Error(), "b.pdf")
}

func TestBatchAggregateError_NamesEveryFile(t *testing.T) {
	err := &BatchAggregateError{
		Duplicates: []string{"b.pdf", "d.pdf"},
		Invalid:    []*ValidationError{{File: "x.txt", Reason: "not a PDF"}},
	}

	require.ErrorIs(t, err, ErrBatchIncomplete)
	msg := err.Error()
	for _, s := range []string{"b.pdf", "d.pdf", "x.txt (not a PDF)"} {
		assert.Contains(t, msg, s)
	}
}
