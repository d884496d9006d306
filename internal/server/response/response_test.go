package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]any{"count": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, float64(2), resp.Data.(map[string]any)["count"])
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		api  string
	}{
		{"not found", errors.NewNotFoundError("torrent", "abc"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("get: %w", errors.NewNotFoundError("torrent", "abc")), http.StatusNotFound, "NOT_FOUND"},
		{"validation", errors.NewValidationError("info_hash", "x", "invalid"), http.StatusBadRequest, "BAD_REQUEST"},
		{"exists", fmt.Errorf("add: %w", errors.ErrAlreadyExists), http.StatusConflict, "CONFLICT"},
		{"timeout", errors.NewTimeoutError("fetch", "20s", "no metadata"), http.StatusGatewayTimeout, "TIMEOUT"},
		{"not running", errors.ErrNotInitialized, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorFromType(rec, tt.err)
			assert.Equal(t, tt.code, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.api, resp.Error.Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("secret path /var/lib"))
	assert.NotContains(t, rec.Body.String(), "/var/lib")
}
