package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api"
	"github.com/phrazzld/scry-scheduler/internal/api/middleware"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/scry-scheduler/internal/service"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler http.Handler
	token   string
	userID  uuid.UUID
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()

	db := testdb.NewSQLiteDB(t)
	svc, err := service.NewStudyService(service.Stores{
		DB:         db,
		CardStates: sqlite.NewCardStateStore(db, nil),
		Statistics: sqlite.NewStatisticsStore(db, nil),
		ReviewLog:  sqlite.NewReviewLogStore(db, nil),
		Policies:   sqlite.NewPolicyStore(db, nil),
	}, service.Config{}, service.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)

	userID := uuid.New()
	token, err := jwtService.GenerateToken(context.Background(), userID, time.Hour)
	require.NoError(t, err)

	return &testServer{
		t: t,
		handler: api.NewRouter(api.RouterDeps{
			Study:   svc,
			Policy:  svc,
			JWT:     jwtService,
			Limiter: limiter,
			Health:  db.PingContext,
		}),
		token:  token,
		userID: userID,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get(middleware.TraceHeader), 32)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudyFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	deck := map[string]any{"cards": []map[string]any{{"id": "c1"}, {"id": "c2", "front": "2+2"}}}

	rec := srv.do(http.MethodPost, "/api/cards/due", deck)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[api.CardsResponse](t, rec).Count)

	t.Run("answer by button", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/cards/c1/answer", map[string]any{
			"answer":                "Easy",
			"response_time_seconds": 2.5,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		state := decode[map[string]any](t, rec)
		assert.Equal(t, "c1", state["card_id"])
		assert.EqualValues(t, 1, state["interval"])
		assert.EqualValues(t, 5, state["performance"])
		assert.Equal(t, "easy", state["last_answer"])
		assert.Equal(t, false, state["due"])
	})

	t.Run("answer by grade is clamped", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/cards/c2/answer", map[string]any{"grade": -3})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.EqualValues(t, 0, decode[map[string]any](t, rec)["performance"])
	})

	t.Run("invalid answers", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want int
		}{
			{"neither", `{}`, http.StatusBadRequest},
			{"both", `{"grade":3,"answer":"good"}`, http.StatusBadRequest},
			{"unknown button", `{"answer":"meh"}`, http.StatusBadRequest},
			{"negative time", `{"grade":3,"response_time_seconds":-1}`, http.StatusBadRequest},
			{"malformed", `{"grade":`, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := srv.do(http.MethodPost, "/api/cards/c1/answer", tt.body)
				assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("state", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/cards/c1/state", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = srv.do(http.MethodGet, "/api/cards/unknown/state", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("due excludes graded cards", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/cards/due", deck)
		require.Equal(t, http.StatusOK, rec.Code)
		// both cards come due again tomorrow
		assert.Zero(t, decode[api.CardsResponse](t, rec).Count)
	})

	t.Run("postpone", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/cards/c1/postpone", map[string]int{"days": 2})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decode[map[string]any](t, rec)["interval"])

		rec = srv.do(http.MethodPost, "/api/cards/c1/postpone", map[string]int{"days": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("stats", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[domain.StudyStats](t, rec)
		assert.Equal(t, 2, stats.TotalReviews)
		assert.Equal(t, 1, stats.CorrectAnswers)
		assert.Equal(t, 2, stats.TrackedCards)
		assert.InDelta(t, 50.0, stats.Accuracy, 1e-9)

		rec = srv.do(http.MethodGet, "/api/stats/difficulty", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = srv.do(http.MethodGet, "/api/stats/history?days=7", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		history := decode[api.HistoryResponse](t, rec)
		require.Len(t, history.History, 7)
		assert.Equal(t, 2, history.History[6].Reviews)

		for _, q := range []string{"days=0", "days=abc", "days=4000"} {
			rec = srv.do(http.MethodGet, "/api/stats/history?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("reset", func(t *testing.T) {
		rec := srv.do(http.MethodDelete, "/api/cards/c2/state", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[api.ResetCardResponse](t, rec).Removed)

		rec = srv.do(http.MethodDelete, "/api/state", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = srv.do(http.MethodGet, "/api/stats", nil)
		assert.Zero(t, decode[domain.StudyStats](t, rec).TotalReviews)
	})
}

func TestStudyBatch(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	rec := srv.do(http.MethodPatch, "/api/policy/settings", map[string]any{"newCardsPerDay": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(http.MethodPost, "/api/cards/batch", map[string]any{
		"cards": []map[string]string{{"id": "a"}, {"id": "b"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	batch := decode[api.CardsResponse](t, rec)
	require.Len(t, batch.Cards, 1)
	assert.Equal(t, "a", batch.Cards[0].ID)

	rec = srv.do(http.MethodPost, "/api/cards/batch", map[string]any{"cards": []map[string]string{{"front": "no id"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.PolicyView](t, rec)
	assert.Equal(t, "standard", view.Preset)

	t.Run("presets are public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/policy/presets", nil)
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"conservative"`)
	})

	t.Run("apply preset", func(t *testing.T) {
		rec := srv.do(http.MethodPut, "/api/policy/preset", api.PresetRequest{Preset: "aggressive"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "aggressive", decode[service.PolicyView](t, rec).Preset)

		rec = srv.do(http.MethodPut, "/api/policy/preset", api.PresetRequest{Preset: "turbo"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unknown preset")
	})

	t.Run("settings", func(t *testing.T) {
		rec := srv.do(http.MethodPatch, "/api/policy/settings", map[string]any{"maximumInterval": 120})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 120, decode[service.PolicyView](t, rec).Config.MaximumInterval)

		rec = srv.do(http.MethodPatch, "/api/policy/settings", map[string]any{"maximumInterval": -5})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.NotEmpty(t, body["details"])

		rec = srv.do(http.MethodPatch, "/api/policy/settings", map[string]any{"nope": 1})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = srv.do(http.MethodPatch, "/api/policy/settings", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validate", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/policy/validate", map[string]any{"easyBonus": 9})
		require.Equal(t, http.StatusOK, rec.Code)
		result := decode[api.ValidationResponse](t, rec)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Violations)

		rec = srv.do(http.MethodPost, "/api/policy/validate", map[string]any{"easyBonus": 1.5})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[api.ValidationResponse](t, rec).Valid)
	})

	t.Run("export and import", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/policy/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		blob := rec.Body.Bytes()
		assert.Contains(t, string(blob), `"aggressive"`)

		rec = srv.do(http.MethodDelete, "/api/policy/settings", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[service.PolicyView](t, rec).Customizations)

		rec = srv.do(http.MethodPost, "/api/policy/import", blob)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 120, decode[service.PolicyView](t, rec).Config.MaximumInterval)

		rec = srv.do(http.MethodPost, "/api/policy/import", `{"preset":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = srv.do(http.MethodPost, "/api/policy/import", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("adapt without reviews", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/policy/adapt", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decode[service.AdaptResult](t, rec)
		assert.Zero(t, result.Reviews)
		assert.False(t, result.Applied)
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, middleware.NewRateLimiter(0.001, 2))

	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/stats", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/stats", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, srv.do(http.MethodGet, "/api/stats", nil).Code)
}

// failingStudy fails every call with err.
type failingStudy struct {
	api.StudyService
	err error
}

func (f failingStudy) Stats(context.Context, uuid.UUID) (domain.StudyStats, error) {
	return domain.StudyStats{}, f.err
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	t.Parallel()

	handler := api.NewStudyHandler(failingStudy{err: errors.New("pq: relation card_states is locked")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req = req.WithContext(shared.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to get statistics")
	assert.NotContains(t, rec.Body.String(), "card_states")
}
