package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/platform/postgres"
	"github.com/phrazzld/scry-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/scry-scheduler/internal/service"
	"github.com/phrazzld/scry-scheduler/migrations"
)

// openDatabase connects to the configured backend and brings its schema up
// to date.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	start := time.Now()

	var (
		db  *sql.DB
		err error
	)
	switch migrations.Dialect(cfg.Driver) {
	case migrations.Postgres:
		db, err = postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
	case migrations.SQLite:
		db, err = sqlite.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	if err := migrations.Up(ctx, db, migrations.Dialect(cfg.Driver), logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("database ready",
		slog.String("driver", cfg.Driver),
		slog.String("host", extractHostFromURL(cfg.URL)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return db, nil
}

// newStores builds the persistence of the study service for driver.
func newStores(driver string, db *sql.DB, logger *slog.Logger) (service.Stores, error) {
	switch migrations.Dialect(driver) {
	case migrations.Postgres:
		return service.Stores{
			DB:         db,
			CardStates: postgres.NewPostgresCardStateStore(db, logger),
			Statistics: postgres.NewPostgresStatisticsStore(db, logger),
			ReviewLog:  postgres.NewPostgresReviewLogStore(db, logger),
			Policies:   postgres.NewPostgresPolicyStore(db, logger),
		}, nil
	case migrations.SQLite:
		return service.Stores{
			DB:         db,
			CardStates: sqlite.NewCardStateStore(db, logger),
			Statistics: sqlite.NewStatisticsStore(db, logger),
			ReviewLog:  sqlite.NewReviewLogStore(db, logger),
			Policies:   sqlite.NewPolicyStore(db, logger),
		}, nil
	default:
		return service.Stores{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// maskDatabaseURL masks the password in a database URL for safe logging.
// Plain file paths are returned unchanged.
func maskDatabaseURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "****")
		}
		return parsed.String()
	}
	return dbURL
}

// extractHostFromURL returns the host of a database URL, or "local" for a
// file path.
func extractHostFromURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil || parsed.Hostname() == "" {
		return "local"
	}
	return parsed.Hostname()
}
