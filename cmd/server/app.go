package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/api"
	"github.com/phrazzld/scry-scheduler/internal/api/middleware"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/service"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/task"
	"golang.org/x/sync/errgroup"
)

// limiterPruneInterval is how often idle rate limit buckets are dropped.
const limiterPruneInterval = time.Minute

// application holds the shared dependencies of the server and owns their
// cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	study      *service.StudyService
	jwtService auth.JWTService
	emitter    *events.InMemoryEventEmitter
	limiter    *middleware.RateLimiter
	runner     *task.Runner // nil when adaptation is disabled

	// listen is overridable in tests.
	listen func(network, addr string) (net.Listener, error)
}

// newApplication creates the application from a connected, migrated db.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		listen: net.Listen,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	stores, err := newStores(cfg.Database.Driver, db, logger)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone: %w", err)
	}
	mode, err := policy.ParseAdaptiveMode(cfg.Scheduler.AdaptiveMode)
	if err != nil {
		return nil, err
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLogHandler(logger))

	app.study, err = service.NewStudyService(stores, service.Config{
		DefaultPreset:         cfg.Scheduler.DefaultPreset,
		AdaptiveMode:          mode,
		Location:              loc,
		PerformanceWindowDays: cfg.Scheduler.PerformanceWindowDays,
		HistoryDays:           cfg.Scheduler.HistoryDays,
	}, service.WithEmitter(app.emitter), service.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}

	app.limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)

	if cfg.Scheduler.AdaptationInterval > 0 && mode != policy.AdaptiveOff {
		app.runner = task.NewRunner(
			task.NewAdaptationTask(app.study, logger),
			task.RunnerConfig{Interval: cfg.Scheduler.AdaptationInterval},
			logger)
	}

	logger.Info("application initialized",
		slog.String("default_preset", cfg.Scheduler.DefaultPreset),
		slog.String("timezone", loc.String()),
		slog.Bool("adaptation_runner", app.runner != nil))
	return app, nil
}

// routes builds the HTTP handler.
func (app *application) routes() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Study:          app.study,
		Policy:         app.study,
		JWT:            app.jwtService,
		Limiter:        app.limiter,
		Health:         app.db.PingContext,
		RequestTimeout: app.config.Server.WriteTimeout,
		Logger:         app.logger,
	})
}

// Run serves HTTP and runs the background jobs until ctx is cancelled or
// one of them fails, then shuts the server down gracefully.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Handler:      app.routes(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	ln, err := app.listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if app.runner != nil {
		g.Go(func() error {
			return app.runner.Run(gctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(limiterPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := app.limiter.Prune(); n > 0 {
					app.logger.Debug("pruned idle rate limiters", slog.Int("count", n))
				}
			}
		}
	})

	err = g.Wait()
	app.logger.Info("server shutdown completed")
	return err
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
