package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, BadRequest("x").Code)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Code)
	assert.Equal(t, http.StatusNotFound, NotFound("x").Code)
	assert.Equal(t, http.StatusConflict, Conflict("x").Code)
	assert.Equal(t, http.StatusServiceUnavailable, ServerError("x").Code)
}

func TestFromError(t *testing.T) {
	t.Run("taxonomy errors pass through", func(t *testing.T) {
		err := Conflict("user already exists")
		mapped := FromError(err)
		assert.Equal(t, http.StatusConflict, mapped.Code)
		assert.Equal(t, "user already exists", mapped.Message)
	})

	t.Run("wrapped taxonomy errors are unwrapped", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", NotFound("invoice not found"))
		assert.Equal(t, http.StatusNotFound, FromError(err).Code)
	})

	t.Run("unknown errors become 503 with the raw message", func(t *testing.T) {
		err := errors.New("connection refused")
		mapped := FromError(err)
		assert.Equal(t, http.StatusServiceUnavailable, mapped.Code)
		assert.Equal(t, "connection refused", mapped.Message)
	})
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsConflict(Conflict("x")))
	assert.True(t, IsUnauthorized(Unauthorized("x")))
	assert.False(t, IsNotFound(Conflict("x")))
}
