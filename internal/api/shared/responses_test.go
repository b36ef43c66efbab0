package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		data         any
		expectedBody string
	}{
		{
			name:         "object",
			status:       http.StatusOK,
			data:         map[string]any{"fired": true},
			expectedBody: `{"fired":true}`,
		},
		{
			name:         "empty object",
			status:       http.StatusCreated,
			data:         map[string]any{},
			expectedBody: `{}`,
		},
		{
			name:         "nil",
			status:       http.StatusOK,
			data:         nil,
			expectedBody: `null`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			RespondWithJSON(w, req, tc.status, tc.data)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tc.expectedBody+"\n", w.Body.String())
		})
	}
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/next", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Card not found")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Card not found", resp.Error)
	assert.Equal(t, GetTraceID(req.Context()), resp.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	sensitive := errors.New("open /var/lib/scry/progress/steve.json: permission denied")

	tests := []struct {
		name          string
		status        int
		opts          []ResponseOption
		expectedLevel slog.Level
	}{
		{name: "server error", status: http.StatusInternalServerError, expectedLevel: slog.LevelError},
		{name: "client error", status: http.StatusBadRequest, expectedLevel: slog.LevelDebug},
		{name: "rate limited", status: http.StatusTooManyRequests, expectedLevel: slog.LevelWarn},
		{
			name:          "elevated client error",
			status:        http.StatusUnauthorized,
			opts:          []ResponseOption{WithElevatedLogLevel()},
			expectedLevel: slog.LevelWarn,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			log, handler := testutils.NewTestLogger()
			req := httptest.NewRequest(http.MethodPost, "/api/cards/c1/answer", nil)
			req = req.WithContext(logger.WithLogger(SetTraceID(req.Context()), log))
			w := httptest.NewRecorder()

			RespondWithErrorAndLog(w, req, tc.status, "Something went wrong", sensitive, tc.opts...)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "/var/lib")

			entries := handler.EntriesAtLevel(tc.expectedLevel)
			require.Len(t, entries, 1)
			assert.Equal(t, "API error response", entries[0].Message())
			assert.Equal(t, "open [REDACTED_PATH]: permission denied", entries[0]["error"])
			assert.Equal(t, GetTraceID(req.Context()), entries[0]["trace_id"])
		})
	}
}
