package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK_EnvelopeCarriesNullError(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]int{"id": 7}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"id":7},"error":null}`, w.Body.String())
}

func TestWriteOK_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, nil))

	assert.JSONEq(t, `{"data":null,"error":null}`, w.Body.String())
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteCreated(w, map[string]string{"id": "123"}))

	assert.Equal(t, http.StatusCreated, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Nil(t, response.Error)
	assert.Equal(t, "123", response.Data.(map[string]interface{})["id"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter) error { return WriteBadRequest(w, "Validation failed", nil) },
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
			wantMsg:    "Validation failed",
		},
		{
			name:       "unauthorized default message",
			write:      func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeUnauthenticated,
			wantMsg:    "Authentication required",
		},
		{
			name:       "forbidden custom message",
			write:      func(w http.ResponseWriter) error { return WriteForbidden(w, "Require Admin privileges") },
			wantStatus: http.StatusForbidden,
			wantCode:   CodeForbidden,
			wantMsg:    "Require Admin privileges",
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "Resource not found",
		},
		{
			name:       "conflict",
			write:      func(w http.ResponseWriter) error { return WriteConflict(w, "email already exists", nil) },
			wantStatus: http.StatusConflict,
			wantCode:   CodeConflict,
			wantMsg:    "email already exists",
		},
		{
			name:       "too many requests",
			write:      func(w http.ResponseWriter) error { return WriteTooManyRequests(w, "", nil) },
			wantStatus: http.StatusTooManyRequests,
			wantCode:   CodeRateLimit,
			wantMsg:    "Rate limit exceeded",
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantCode, response.Code)
			assert.Equal(t, tt.wantMsg, response.Error)
			assert.Nil(t, response.Details)
		})
	}
}

func TestWriteError_Details(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteError(w, http.StatusForbidden, "license_required", "a license is required", map[string]interface{}{"path": "data/license.key"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"a license is required","code":"license_required","details":{"path":"data/license.key"}}`, w.Body.String())
}
