package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            0,
			LogLevel:        "debug",
			LogFormat:       "json",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit:       100,
			RateBurst:       100,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			URL:    filepath.Join(t.TempDir(), "scheduler.db"),
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret-that-is-at-least-32-characters"},
		Scheduler: config.SchedulerConfig{
			DefaultPreset:         "standard",
			AdaptiveMode:          "automatic",
			Timezone:              "Europe/Berlin",
			AdaptationInterval:    time.Hour,
			PerformanceWindowDays: 14,
			HistoryDays:           90,
		},
	}
}

func TestApplicationRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	log, _ := logger.GetTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database, log)
	require.NoError(t, err)

	app, err := newApplication(cfg, log, db)
	require.NoError(t, err)
	defer app.cleanup()
	require.NotNil(t, app.runner)

	addrCh := make(chan string, 1)
	app.listen = func(network, addr string) (net.Listener, error) {
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			addrCh <- ln.Addr().String()
		}
		return ln, err
	}

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start listening")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	token, err := app.jwtService.GenerateToken(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/policy", addr), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewApplication_AdaptationDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scheduler.AdaptiveMode = "off"
	log, _ := logger.GetTestLogger(t)

	db, err := openDatabase(context.Background(), cfg.Database, log)
	require.NoError(t, err)

	app, err := newApplication(cfg, log, db)
	require.NoError(t, err)
	defer app.cleanup()
	assert.Nil(t, app.runner)
}

func TestOpenDatabase_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	log, _ := logger.GetTestLogger(t)
	_, err := openDatabase(context.Background(), config.DatabaseConfig{Driver: "mysql", URL: "x"}, log)
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = newStores("mysql", nil, log)
	assert.Error(t, err)
}

func TestMaskDatabaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"password", "postgres://user:secret@db:5432/scry", "postgres://user:%2A%2A%2A%2A@db:5432/scry"},
		{"no password", "postgres://user@db/scry", "postgres://user@db/scry"},
		{"file path", "/var/lib/scry/scheduler.db", "/var/lib/scry/scheduler.db"},
		{"invalid", "postgres://us er:pa ss@%zz", "invalid-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskDatabaseURL(tt.in))
		})
	}

	assert.Equal(t, "db", extractHostFromURL("postgres://user:secret@db:5432/scry"))
	assert.Equal(t, "local", extractHostFromURL("/tmp/x.db"))
}
