package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"golang.org/x/sync/errgroup"
)

// PolicyView is a user's scheduling policy as shown to clients.
type PolicyView struct {
	Preset         string              `json:"preset"`
	Mode           policy.AdaptiveMode `json:"adaptiveMode"`
	Customizations map[string]any      `json:"customizations"`
	Config         policy.Config       `json:"config"`
}

func viewOf(p *policy.Policy) PolicyView {
	return PolicyView{
		Preset:         p.Preset(),
		Mode:           p.Mode(),
		Customizations: p.Customizations(),
		Config:         p.GetConfig(),
	}
}

// AdaptResult reports one adaptation pass.
type AdaptResult struct {
	Mode        policy.AdaptiveMode     `json:"mode"`
	Performance domain.PerformanceStats `json:"performance"`
	Reviews     int                     `json:"reviews"` // reviews inside the window
	Adjustments map[string]any          `json:"adjustments,omitempty"`
	Applied     bool                    `json:"applied"`
	UpToDate    bool                    `json:"upToDate,omitempty"` // no reviews since the last pass
	Policy      *PolicyView             `json:"policy,omitempty"`
}

// savePolicy writes the session's policy.
func (s *StudyService) savePolicy(ctx context.Context, userID uuid.UUID, p *policy.Policy) error {
	blob, err := p.ExportConfig()
	if err != nil {
		return err
	}
	return s.persist(ctx, userID, func(ctx context.Context, tx txStores) error {
		return tx.policies.Save(ctx, userID, blob)
	})
}

// Policy returns the user's policy.
func (s *StudyService) Policy(ctx context.Context, userID uuid.UUID) (PolicyView, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return PolicyView{}, err
	}
	return viewOf(sess.policy), nil
}

// ApplyPreset switches the user's preset. An unknown name returns
// policy.ErrUnknownPreset and changes nothing.
func (s *StudyService) ApplyPreset(ctx context.Context, userID uuid.UUID, name string) (PolicyView, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return PolicyView{}, err
	}
	defer sess.mu.Unlock()

	if !sess.policy.ApplyPreset(name) {
		return PolicyView{}, fmt.Errorf("%w: %q", policy.ErrUnknownPreset, name)
	}
	if err := s.savePolicy(ctx, userID, sess.policy); err != nil {
		return PolicyView{}, NewServiceError("apply_preset", "failed to save policy", err)
	}
	return viewOf(sess.policy), nil
}

// UpdateSettings applies several overrides at once. Invalid input returns
// a policy error and changes nothing.
func (s *StudyService) UpdateSettings(ctx context.Context, userID uuid.UUID, settings map[string]any) (PolicyView, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return PolicyView{}, err
	}
	defer sess.mu.Unlock()

	if err := sess.policy.ApplyAdjustments(settings); err != nil {
		return PolicyView{}, err
	}
	if err := s.savePolicy(ctx, userID, sess.policy); err != nil {
		return PolicyView{}, NewServiceError("update_settings", "failed to save policy", err)
	}
	return viewOf(sess.policy), nil
}

// ResetSettings drops every override.
func (s *StudyService) ResetSettings(ctx context.Context, userID uuid.UUID) (PolicyView, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return PolicyView{}, err
	}
	defer sess.mu.Unlock()

	sess.policy.ResetCustomizations()
	if err := s.savePolicy(ctx, userID, sess.policy); err != nil {
		return PolicyView{}, NewServiceError("reset_settings", "failed to save policy", err)
	}
	return viewOf(sess.policy), nil
}

// ValidateSettings reports the violations the given overrides would cause on
// top of the user's current policy, without applying them. Unknown keys and
// wrongly typed values are reported as violations too.
func (s *StudyService) ValidateSettings(ctx context.Context, userID uuid.UUID, settings map[string]any) ([]string, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	blob, err := sess.policy.ExportConfig()
	if err != nil {
		return nil, err
	}
	trial, err := policy.NewPolicy(policy.Settings{Mode: policy.AdaptiveOff}, s.logger)
	if err != nil {
		return nil, err
	}
	if !trial.ImportConfig(blob) {
		return nil, fmt.Errorf("%w: current policy could not be copied", ErrInvalidPolicy)
	}

	err = trial.ApplyAdjustments(settings)
	var verr *policy.ValidationError
	switch {
	case err == nil:
		return []string{}, nil
	case errors.As(err, &verr):
		return verr.Violations, nil
	default:
		return []string{err.Error()}, nil
	}
}

// ExportPolicy returns the user's policy document.
func (s *StudyService) ExportPolicy(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.policy.ExportConfig()
}

// ImportPolicy replaces the user's policy with a document produced by
// ExportPolicy. A rejected document returns ErrInvalidPolicy and changes
// nothing.
func (s *StudyService) ImportPolicy(ctx context.Context, userID uuid.UUID, blob []byte) (PolicyView, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return PolicyView{}, err
	}
	defer sess.mu.Unlock()

	if !sess.policy.ImportConfig(blob) {
		return PolicyView{}, ErrInvalidPolicy
	}
	if err := s.savePolicy(ctx, userID, sess.policy); err != nil {
		return PolicyView{}, NewServiceError("import_policy", "failed to save policy", err)
	}
	return viewOf(sess.policy), nil
}

// Adapt analyses the user's recent performance and, depending on the
// adaptive mode, proposes or applies policy adjustments. Users without
// reviews in the performance window are left alone, and so are users with no
// reviews since the previous pass of this session.
func (s *StudyService) Adapt(ctx context.Context, userID uuid.UUID) (AdaptResult, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return AdaptResult{}, err
	}
	defer sess.mu.Unlock()

	window := s.cfg.PerformanceWindowDays
	perf := sess.scheduler.Performance(window)
	result := AdaptResult{
		Mode:        sess.policy.Mode(),
		Performance: perf,
		Reviews:     sess.scheduler.EventCount(window),
	}
	if result.Reviews == 0 {
		return result, nil
	}
	count := sess.scheduler.ReviewCount()
	if sess.adapted && count == sess.adaptedAt {
		result.UpToDate = true
		return result, nil
	}

	adjustments, applied, err := sess.policy.Adapt(perf)
	if err != nil {
		return result, NewServiceError("adapt", "adjustments rejected", err)
	}
	result.Adjustments = adjustments
	result.Applied = applied
	if adjustments == nil {
		sess.adapted, sess.adaptedAt = true, count
		return result, nil
	}

	if applied {
		if err := s.savePolicy(ctx, userID, sess.policy); err != nil {
			return result, NewServiceError("adapt", "failed to save policy", err)
		}
		view := viewOf(sess.policy)
		result.Policy = &view
	}
	sess.adapted, sess.adaptedAt = true, count

	logger.FromContextOrDefault(ctx, s.logger).Info("policy adjustments computed",
		slog.String("user_id", userID.String()),
		slog.String("mode", string(result.Mode)),
		slog.Bool("applied", applied),
		slog.Any("adjustments", adjustments))

	s.emit(ctx, events.TypePolicyAdjusted, userID, events.PolicyAdjustedPayload{
		Mode:        string(result.Mode),
		Applied:     applied,
		Adjustments: adjustments,
	})
	return result, nil
}

// AdaptAll runs Adapt for every loaded session and returns how many produced
// adjustments. A failure for one user does not stop the others; all
// failures are returned joined.
func (s *StudyService) AdaptAll(ctx context.Context) (int, error) {
	users := s.Users()
	if len(users) == 0 {
		return 0, nil
	}

	var (
		adjusted atomic.Int64
		mu       sync.Mutex
		errs     []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.AdaptConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := s.Adapt(gctx, userID)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
				mu.Unlock()
				return nil
			}
			if result.Adjustments != nil {
				adjusted.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Debug("adaptation pass finished",
		slog.Int("users", len(users)),
		slog.Int64("adjusted", adjusted.Load()),
		slog.Int("failed", len(errs)))
	return int(adjusted.Load()), errors.Join(errs...)
}
