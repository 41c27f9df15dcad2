package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tc := range tests {
		got, err := logger.ParseLevel(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.wantErr, err != nil, tc.in)
	}
}

// New installs the slog default, so these tests do not run in parallel.
func TestNew(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Run("json filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := logger.New(&buf, config.ServerConfig{LogLevel: "warn", LogFormat: "json"})
		require.NoError(t, err)

		l.Info("hidden")
		l.Warn("shown", slog.String("card_id", "c1"))

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"msg":"shown"`)
		assert.Contains(t, out, `"card_id":"c1"`)
		assert.Same(t, l, slog.Default())
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := logger.New(&buf, config.ServerConfig{LogLevel: "info", LogFormat: "text"})
		require.NoError(t, err)
		l.Info("hello")
		assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := logger.New(&bytes.Buffer{}, config.ServerConfig{LogLevel: "info", LogFormat: "xml"})
		assert.Error(t, err)
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	fallback, fallbackBuf := logger.GetTestLogger(t)
	scoped, scopedBuf := logger.GetTestLogger(t)

	t.Run("fallback without logger", func(t *testing.T) {
		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("stored logger wins", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), scoped)
		logger.FromContextOrDefault(ctx, fallback).Info("scoped message")
		assert.Contains(t, scopedBuf.String(), "scoped message")
		assert.NotContains(t, fallbackBuf.String(), "scoped message")
	})

	t.Run("request id attached to fallback", func(t *testing.T) {
		ctx := logger.WithRequestID(context.Background(), "req-42")
		assert.Equal(t, "req-42", logger.RequestIDFromContext(ctx))

		logger.FromContextOrDefault(ctx, fallback).Info("with id")
		entries, err := fallbackBuf.GetLogEntries()
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, "req-42", entries[len(entries)-1]["request_id"])
	})
}
