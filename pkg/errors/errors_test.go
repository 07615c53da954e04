package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesPredefined(t *testing.T) {
	err := Clone(ErrForbidden, "missing role: admin")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "missing role: admin", err.Message)
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrInvalidInput, "score out of range"))
	appErr = FromError(wrapped)
	assert.Equal(t, ErrInvalidInput.Code, appErr.Code)
	assert.Equal(t, "score out of range", appErr.Message)
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "failed to load submission")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "connection refused")
}
