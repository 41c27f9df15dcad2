package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/redact"
)

// RunnerConfig holds configuration for the periodic runner.
type RunnerConfig struct {
	// Interval between two executions. Must be positive.
	Interval time.Duration

	// Timeout bounds a single execution. Zero means the interval.
	Timeout time.Duration

	// RunOnStart executes the task once immediately instead of waiting for
	// the first tick.
	RunOnStart bool
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval: time.Hour,
	}
}

// Runner executes a task periodically until its context is cancelled.
// Executions never overlap; a tick that arrives while the task is still
// running is dropped.
type Runner struct {
	task   Task
	config RunnerConfig
	logger *slog.Logger

	// errHandler is called when an execution fails
	errHandler func(task Task, err error)
}

// NewRunner creates a Runner for task.
func NewRunner(task Task, config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		logger.Warn("invalid runner interval specified, using default",
			slog.Duration("specified_interval", config.Interval),
			slog.Duration("default_interval", DefaultRunnerConfig().Interval))
		config.Interval = DefaultRunnerConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}

	logger = logger.With(slog.String("component", "task_runner"), slog.String("task", task.Name()))
	return &Runner{
		task:   task,
		config: config,
		logger: logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed", redact.Attr(err))
		},
	}
}

// SetErrorHandler replaces the default error handler, which only logs.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Run blocks, executing the task every interval until ctx is cancelled.
// Cancellation is a normal shutdown and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("task runner started", slog.Duration("interval", r.config.Interval))
	defer r.logger.Info("task runner stopped")

	if r.config.RunOnStart {
		r.execute(ctx)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.execute(ctx)
		}
	}
}

// execute runs the task once under the configured timeout.
func (r *Runner) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	r.logger.Debug("executing task")

	err := r.task.Execute(runCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			r.logger.Debug("task interrupted by shutdown")
			return
		}
		r.errHandler(r.task, err)
		return
	}

	r.logger.Debug("task completed",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
