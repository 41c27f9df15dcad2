package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "one token refilled")
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiter_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(rl.idleTTL + time.Second)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Prune())
	assert.Len(t, rl.limits, 1)
	assert.Contains(t, rl.limits, "fresh")
}

func TestRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.5, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string, userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = remote
		if userID != uuid.Nil {
			req = req.WithContext(shared.WithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1234", uuid.Nil).Code)

	limited := send("10.0.0.1:5678", uuid.Nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), "Too many requests")

	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1234", uuid.Nil).Code)

	// users are keyed by ID regardless of address
	userID := uuid.New()
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1", userID).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.3:1", userID).Code)
}
