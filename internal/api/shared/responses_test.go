package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	RespondWithJSON(rec, req, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"client error", http.StatusBadRequest, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := logger.GetTestLogger(t)
			req := httptest.NewRequest("GET", "/cards", nil)
			req = req.WithContext(logger.WithLogger(SetTraceID(req.Context()), log))
			rec := httptest.NewRecorder()

			RespondWithErrorAndLog(rec, req, tt.status, "Safe message", errors.New("pq: secret table"), tt.opts...)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Safe message", body.Error)
			assert.Equal(t, GetTraceID(req.Context()), body.TraceID)
			assert.NotContains(t, rec.Body.String(), "secret table")

			entries, err := buf.GetLogEntries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0][slog.LevelKey])
			assert.Equal(t, "pq: secret table", entries[0]["error"])
		})
	}
}

func TestRespondWithErrorAndLogRedactsError(t *testing.T) {
	t.Parallel()

	log, buf := logger.GetTestLogger(t)
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))

	RespondWithErrorAndLog(httptest.NewRecorder(), req, http.StatusInternalServerError, "Failed",
		errors.New("connect postgres://scry:hunter2@db:5432/scry: refused"))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "connect [REDACTED_CREDENTIAL]db:5432/scry: refused", entries[0]["error"])
}

func TestRespondWithErrorDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/policy/settings", nil)

	RespondWithError(rec, req, http.StatusBadRequest, "Invalid settings",
		WithDetails([]string{"maximumInterval must be at least 1"}))

	assert.JSONEq(t,
		`{"error":"Invalid settings","details":["maximumInterval must be at least 1"]}`,
		rec.Body.String())
}
