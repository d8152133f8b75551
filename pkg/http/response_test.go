package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "counsel/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"full", apperrors.Full("Session is full"), http.StatusConflict, apperrors.CodeFull},
		{"wrapped forbidden", fmt.Errorf("ctx: %w", apperrors.Forbidden("nope")), http.StatusForbidden, apperrors.CodeForbidden},
		{"missing fields", apperrors.MissingFields("title"), http.StatusBadRequest, apperrors.CodeMissingFields},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperrors.Internal("Failed", errors.New("secret dsn")).WithDetails(map[string]any{"dsn": "x"}))

	assert.NotContains(t, rec.Body.String(), "dsn")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Status string `json:"status"`
	}

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"cancelled"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "cancelled", dst.Status)

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":`))
	err := DecodeJSON(req, &dst)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(req, &dst))
}

func TestQueryBool(t *testing.T) {
	assert.True(t, QueryBool(httptest.NewRequest(http.MethodGet, "/?deleted=true", nil), "deleted"))
	assert.False(t, QueryBool(httptest.NewRequest(http.MethodGet, "/?deleted=maybe", nil), "deleted"))
	assert.False(t, QueryBool(httptest.NewRequest(http.MethodGet, "/", nil), "deleted"))
}
