package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustrious/cloud/pkg/apperrors"
)

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]string{"ok": "yes"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWriteError(t *testing.T) {
	t.Run("taxonomy error keeps its status and message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.Conflict("invoice already exists"))

		assert.Equal(t, http.StatusConflict, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "invoice already exists", body.Message)
		assert.Equal(t, http.StatusConflict, body.Code)
	})

	t.Run("unknown error becomes 503", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("dial tcp: connection refused"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, http.StatusServiceUnavailable, body.Code)
		assert.Equal(t, "dial tcp: connection refused", body.Message)
	})
}

func TestErrorBodyShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorized(rec, "Access token is missing.")

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Len(t, raw, 2)
	assert.Equal(t, "Access token is missing.", raw["message"])
	assert.Equal(t, float64(401), raw["code"])
}
