package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("load classroom: %w", Clone(ErrNotFound, "classroom not found"))

	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "classroom not found", appErr.Message)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.EqualError(t, appErr.Unwrap(), "boom")
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrValidation, "all fields are required")
	assert.Equal(t, "all fields are required", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Nil(t, FromError(nil))
}

func TestWrapAsAndHasCode(t *testing.T) {
	cause := errors.New("token expired")
	err := fmt.Errorf("refresh: %w", WrapAs(cause, ErrUnauthorized, "invalid token"))

	assert.True(t, HasCode(err, ErrUnauthorized))
	assert.False(t, HasCode(err, ErrForbidden))
	assert.False(t, HasCode(cause, ErrUnauthorized))
	assert.False(t, HasCode(err, nil))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusUnauthorized, FromError(err).Status)
}

func TestConflictIsReportedAsBadRequest(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrConflict.Status)
	assert.Equal(t, http.StatusBadRequest, ErrDueDatePassed.Status)
}
