package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"golang.org/x/time/rate"
)

// limiterEntry is one client's token bucket.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst to every client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits:  make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// getLimiter gets or creates the limiter of key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limits[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.limits[key] = entry
	return entry.limiter
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).AllowN(rl.now(), 1)
}

// Prune forgets clients idle for longer than the idle TTL and returns how
// many were dropped.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	n := 0
	for key, entry := range rl.limits {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the limit with 429. Authenticated
// requests are keyed by user, the rest by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.rps <= 0 {
		return 60
	}
	return max(1, int(1/float64(rl.rps)))
}

func clientKey(r *http.Request) string {
	if userID, ok := shared.UserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
