package testdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	// Registers the "pgx" driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/scry-scheduler/migrations"
	"github.com/stretchr/testify/require"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// TestTimeout bounds connection and migration steps.
const TestTimeout = 30 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDBWithT returns a migrated PostgreSQL connection pool that is closed
// when the test ends. The test is skipped when no database URL is set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL or SCRY_TEST_DB_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed for %s", MaskDatabaseURL(dbURL))

	migrateOnce.Do(func() {
		migrateErr = migrations.Up(ctx, db, migrations.Postgres, nil)
	})
	require.NoError(t, migrateErr, "Failed to apply migrations")

	return db
}

// NewSQLiteDB returns a migrated SQLite database stored in the test's temp
// directory.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scheduler.db")
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	require.NoError(t, err, "Failed to open sqlite database")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, migrations.Up(ctx, db, migrations.SQLite, nil), "Failed to apply migrations")

	return db
}

// CleanupDB closes db, logging any error.
func CleanupDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database connection: %v", err)
	}
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				t.Logf("Warning: failed to rollback transaction after panic: %v", rbErr)
			}
			panic(r)
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", rbErr)
		}
	}()

	fn(t, tx)
}
