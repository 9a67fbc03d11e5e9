package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	appErr := NewInternalError("operation failed").WithCause(cause)

	assert.Equal(t, "operation failed: boom", appErr.Error())
	assert.True(t, errors.Is(appErr, cause))
}

func TestVersionMismatch_Detection(t *testing.T) {
	appErr := NewVersionMismatchError("scenes", "s1")

	assert.True(t, IsVersionMismatch(appErr))
	assert.True(t, IsVersionMismatch(fmt.Errorf("save failed: %w", appErr)))
	assert.True(t, IsVersionMismatch(ErrVersionMismatch))
	assert.False(t, IsVersionMismatch(NewNotFoundError("scene")))
	assert.False(t, IsVersionMismatch(nil))

	assert.Equal(t, http.StatusConflict, appErr.HTTPCode)
	assert.Equal(t, "scenes", appErr.Details["collection"])
	assert.Equal(t, "s1", appErr.Details["id"])
}

func TestNotFound_Detection(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("scene")))
	assert.True(t, IsNotFound(ErrCollectionNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.False(t, IsNotFound(NewVersionMismatchError("scenes", "s1")))
}

func TestUnavailable_Detection(t *testing.T) {
	assert.True(t, IsUnavailable(NewUnavailableError("backend down")))
	assert.True(t, IsUnavailable(ErrStoreNotInitialized))
	assert.False(t, IsUnavailable(NewInternalError("oops")))
}

func TestCorruptPayload_Detection(t *testing.T) {
	assert.True(t, IsCorruptPayload(NewCorruptPayloadError("bad json")))
	assert.True(t, IsCorruptPayload(ErrCorruptPayload))
	assert.False(t, IsCorruptPayload(NewNotFoundError("scene")))
}

func TestValidation_Detection(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("id required")))
	assert.True(t, IsValidation(ErrMissingDocumentID))
	assert.False(t, IsValidation(NewInternalError("oops")))
}

func TestWrapError(t *testing.T) {
	appErr := NewNotFoundError("scene")
	assert.Same(t, appErr, WrapError(fmt.Errorf("outer: %w", appErr), "ignored"))

	wrapped := WrapError(errors.New("raw failure"), "store read failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.Equal(t, "store read failed: raw failure", wrapped.Error())
}

func TestBuilders(t *testing.T) {
	appErr := NewAppError(ErrorTypeConflict, "conflict", http.StatusConflict).
		WithCode("DuplicateKey").
		WithComponent("mongostore").
		WithDetail("key", "d1")

	assert.Equal(t, "DuplicateKey", appErr.Code)
	assert.Equal(t, "mongostore", appErr.Component)
	assert.Equal(t, "d1", appErr.Details["key"])
}
