package task

import (
	"context"
	"log/slog"
)

// Task is a unit of background work.
type Task interface {
	// Name identifies the task in logs
	Name() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Adapter tunes the scheduling policies of every active learner and reports
// how many were changed.
type Adapter interface {
	AdaptAll(ctx context.Context) (int, error)
}

// AdaptationTask runs policy adaptation for all loaded users.
type AdaptationTask struct {
	adapter Adapter
	logger  *slog.Logger
}

// NewAdaptationTask creates an AdaptationTask that calls adapter.
func NewAdaptationTask(adapter Adapter, logger *slog.Logger) *AdaptationTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdaptationTask{
		adapter: adapter,
		logger:  logger.With(slog.String("component", "adaptation_task")),
	}
}

// Name implements Task.
func (t *AdaptationTask) Name() string {
	return "policy_adaptation"
}

// Execute implements Task.
func (t *AdaptationTask) Execute(ctx context.Context) error {
	adjusted, err := t.adapter.AdaptAll(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("policy adaptation finished", slog.Int("users_adjusted", adjusted))
	return nil
}
