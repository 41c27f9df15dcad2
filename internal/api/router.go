package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-scheduler/internal/api/middleware"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
)

// RouterDeps are the collaborators of the HTTP router.
type RouterDeps struct {
	Study  StudyService
	Policy PolicyService
	JWT    auth.JWTService

	// Limiter throttles authenticated requests per user. Nil disables it.
	Limiter *middleware.RateLimiter
	// Health checks backing services for GET /health. Nil reports healthy.
	Health func(ctx context.Context) error
	// RequestTimeout bounds each request. Zero disables it.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// NewRouter builds the HTTP handler serving the API under /api.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewTraceMiddleware(log))
	r.Use(chimw.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(chimw.Timeout(deps.RequestTimeout))
	}

	study := NewStudyHandler(deps.Study, log)
	policies := NewPolicyHandler(deps.Policy, log)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWT)

	r.Get("/health", healthHandler(deps.Health))

	r.Route("/api", func(r chi.Router) {
		r.Get("/policy/presets", policies.ListPresets)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(deps.Limiter.Middleware)
			}

			r.Post("/cards/due", study.DueCards)
			r.Post("/cards/batch", study.StudyBatch)
			r.Post("/cards/{id}/answer", study.SubmitAnswer)
			r.Post("/cards/{id}/postpone", study.PostponeCard)
			r.Get("/cards/{id}/state", study.GetCardState)
			r.Delete("/cards/{id}/state", study.ResetCard)
			r.Delete("/state", study.ResetAll)

			r.Get("/stats", study.GetStats)
			r.Get("/stats/difficulty", study.GetDifficulty)
			r.Get("/stats/history", study.GetHistory)

			r.Get("/policy", policies.GetPolicy)
			r.Put("/policy/preset", policies.ApplyPreset)
			r.Patch("/policy/settings", policies.UpdateSettings)
			r.Delete("/policy/settings", policies.ResetSettings)
			r.Post("/policy/validate", policies.ValidateSettings)
			r.Post("/policy/adapt", policies.Adapt)
			r.Get("/policy/export", policies.ExportPolicy)
			r.Post("/policy/import", policies.ImportPolicy)
		})
	})

	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
