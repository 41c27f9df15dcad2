package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/scheduler"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared session load, which outlives the request that
// started it.
const loadTimeout = 30 * time.Second

// session is one learner's in-memory scheduling state. mu serializes
// mutations together with their persistence.
type session struct {
	mu        sync.Mutex
	scheduler *scheduler.Scheduler
	policy    *policy.Policy

	// adapted is set once an adaptation pass has looked at the reviews;
	// adaptedAt is the scheduler's review count at that pass. Guarded by mu.
	adapted   bool
	adaptedAt uint64
}

// StudyService manages the study sessions of many users.
type StudyService struct {
	stores  Stores
	cfg     Config
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	loads    singleflight.Group
}

// nopEmitter drops every event.
type nopEmitter struct{}

func (nopEmitter) EmitEvent(context.Context, *events.Event) error { return nil }

// NewStudyService creates a StudyService. It returns an error if a store is
// missing or the configured preset or adaptive mode is unknown.
func NewStudyService(stores Stores, cfg Config, opts ...Option) (*StudyService, error) {
	switch {
	case stores.DB == nil:
		return nil, domain.NewValidationError("stores.DB", "cannot be nil", domain.ErrValidation)
	case stores.CardStates == nil:
		return nil, domain.NewValidationError("stores.CardStates", "cannot be nil", domain.ErrValidation)
	case stores.Statistics == nil:
		return nil, domain.NewValidationError("stores.Statistics", "cannot be nil", domain.ErrValidation)
	case stores.ReviewLog == nil:
		return nil, domain.NewValidationError("stores.ReviewLog", "cannot be nil", domain.ErrValidation)
	case stores.Policies == nil:
		return nil, domain.NewValidationError("stores.Policies", "cannot be nil", domain.ErrValidation)
	}

	cfg = cfg.withDefaults()
	if _, ok := policy.LookupPreset(cfg.DefaultPreset); !ok {
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownPreset, cfg.DefaultPreset)
	}
	if _, err := policy.ParseAdaptiveMode(string(cfg.AdaptiveMode)); err != nil {
		return nil, err
	}

	s := &StudyService{
		stores:   stores,
		cfg:      cfg,
		emitter:  nopEmitter{},
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "study_service"))
	return s, nil
}

// session returns the user's session, loading it from the stores on first use.
// Concurrent callers share one load, which is not cancelled when one of them
// gives up.
func (s *StudyService) session(ctx context.Context, userID uuid.UUID) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	ch := s.loads.DoChan(userID.String(), func() (any, error) {
		s.mu.RLock()
		existing, ok := s.sessions[userID]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		loaded, err := s.load(lctx, userID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.sessions[userID] = loaded
		s.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, NewServiceError("load_session", "failed to load study session", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, NewServiceError("load_session", "failed to load study session", res.Err)
		}
		return res.Val.(*session), nil
	}
}

// lockSession returns the user's live session with its mutex held. A session
// evicted while the caller waited for the mutex is released and the user is
// loaded again.
func (s *StudyService) lockSession(ctx context.Context, userID uuid.UUID) (*session, error) {
	for {
		sess, err := s.session(ctx, userID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()

		s.mu.RLock()
		live := s.sessions[userID] == sess
		s.mu.RUnlock()
		if live {
			return sess, nil
		}

		sess.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, NewServiceError("load_session", "failed to load study session", err)
		}
	}
}

// load reads a user's persisted state in parallel and assembles a session.
func (s *StudyService) load(ctx context.Context, userID uuid.UUID) (*session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))
	start := time.Now()

	var (
		states     []*domain.CardMemoryState
		stats      domain.StudyStatistics
		reviews    []domain.ReviewEvent
		policyBlob []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		states, err = s.stores.CardStates.LoadAll(gctx, userID)
		return err
	})
	g.Go(func() error {
		saved, err := s.stores.Statistics.Get(gctx, userID)
		if errors.Is(err, store.ErrStatisticsNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		stats = *saved
		return nil
	})
	g.Go(func() error {
		since := s.now().AddDate(0, 0, -s.cfg.HistoryDays)
		var err error
		reviews, err = s.stores.ReviewLog.List(gctx, userID, store.ReviewLogFilter{Since: since})
		return err
	})
	g.Go(func() error {
		blob, err := s.stores.Policies.Get(gctx, userID)
		if errors.Is(err, store.ErrPolicyNotFound) {
			return nil
		}
		policyBlob = blob
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to load study session", slog.String("error", err.Error()))
		return nil, err
	}

	pol, err := policy.NewPolicy(policy.Settings{
		Preset: s.cfg.DefaultPreset,
		Mode:   s.cfg.AdaptiveMode,
	}, s.logger, policy.WithClock(s.now))
	if err != nil {
		return nil, err
	}
	if policyBlob != nil && !pol.ImportConfig(policyBlob) {
		log.Warn("saved policy rejected, using default preset",
			slog.String("preset", s.cfg.DefaultPreset))
	}

	sched := scheduler.New(scheduler.NewStateStore(),
		scheduler.WithClock(s.now),
		scheduler.WithLocation(s.cfg.Location),
		scheduler.WithParams(pol),
		scheduler.WithRetentionDays(s.cfg.HistoryDays),
		scheduler.WithLogger(s.logger))
	sched.Restore(scheduler.Snapshot{States: states, Statistics: stats, Events: reviews})

	log.Debug("study session loaded",
		slog.Int("cards", len(states)),
		slog.Int("events", len(reviews)),
		slog.String("preset", pol.Preset()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return &session{scheduler: sched, policy: pol}, nil
}

// evict drops a session whose memory may no longer match the stores. Callers
// already waiting on its mutex notice in lockSession.
func (s *StudyService) evict(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Evict unloads a user's session. The next call reloads it.
func (s *StudyService) Evict(userID uuid.UUID) {
	s.evict(userID)
}

// Users returns the IDs of the loaded sessions.
func (s *StudyService) Users() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// persist runs fn in a transaction. On failure the session is evicted.
func (s *StudyService) persist(
	ctx context.Context,
	userID uuid.UUID,
	fn func(ctx context.Context, tx txStores) error,
) error {
	err := store.RunInTransaction(ctx, s.stores.DB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.stores.withTx(tx))
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to persist study session, evicting",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		s.evict(userID)
	}
	return err
}

// emit publishes an event, logging failures.
func (s *StudyService) emit(ctx context.Context, eventType string, userID uuid.UUID, payload any) {
	event, err := events.NewEvent(eventType, userID, payload)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}

func checkCardID(cardID string) error {
	if strings.TrimSpace(cardID) == "" {
		return ErrInvalidCardID
	}
	return nil
}

// RecordAnswer grades a card for userID, persists the new state, the
// statistics and the review event atomically, and returns the state. Grades
// outside 0..5 are clamped.
func (s *StudyService) RecordAnswer(
	ctx context.Context,
	userID uuid.UUID,
	cardID string,
	grade domain.Grade,
	responseTime *time.Duration,
) (*domain.CardMemoryState, error) {
	if err := checkCardID(cardID); err != nil {
		return nil, err
	}
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	review := sess.scheduler.RecordReview(cardID, grade, responseTime)
	err = s.persist(ctx, userID, func(ctx context.Context, tx txStores) error {
		if err := tx.cardStates.Save(ctx, userID, &review.State); err != nil {
			return err
		}
		if err := tx.statistics.Save(ctx, userID, review.Statistics); err != nil {
			return err
		}
		return tx.reviewLog.Append(ctx, userID, review.Event)
	})
	if err != nil {
		return nil, NewServiceError("record_answer", "failed to save review", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("answer recorded",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID),
		slog.Int("grade", int(review.Event.Grade)),
		slog.Int("interval", review.State.Interval))

	s.emit(ctx, events.TypeReviewRecorded, userID, events.ReviewRecordedPayload{
		EventID:    review.Event.ID,
		CardID:     cardID,
		Grade:      int(review.Event.Grade),
		Interval:   review.State.Interval,
		NextReview: review.State.NextReview,
	})

	state := review.State
	return &state, nil
}

// DueCards filters cards down to those due now for userID.
func (s *StudyService) DueCards(ctx context.Context, userID uuid.UUID, cards []domain.CardRef) ([]domain.CardRef, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.scheduler.GetDueCards(cards), nil
}

// StudyBatch selects due cards within the daily new-card and review caps of
// the user's policy.
func (s *StudyService) StudyBatch(ctx context.Context, userID uuid.UUID, cards []domain.CardRef) ([]domain.CardRef, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg := sess.policy.GetConfig()
	return sess.scheduler.GetStudyBatch(cards, cfg.NewCardsPerDay, cfg.MaximumReviewsPerDay), nil
}

// CardState returns the tracked state of one card.
func (s *StudyService) CardState(ctx context.Context, userID uuid.UUID, cardID string) (*domain.CardMemoryState, bool, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	state, ok := sess.scheduler.State(cardID)
	return state, ok, nil
}

// Postpone moves a card's next review days later and persists it.
func (s *StudyService) Postpone(ctx context.Context, userID uuid.UUID, cardID string, days int) (*domain.CardMemoryState, error) {
	if err := checkCardID(cardID); err != nil {
		return nil, err
	}
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	state, err := sess.scheduler.Postpone(cardID, days)
	if err != nil {
		return nil, NewServiceError("postpone", "invalid postponement", err)
	}
	err = s.persist(ctx, userID, func(ctx context.Context, tx txStores) error {
		return tx.cardStates.Save(ctx, userID, state)
	})
	if err != nil {
		return nil, NewServiceError("postpone", "failed to save card state", err)
	}
	return state, nil
}

// ResetCard forgets one card's state and reports whether it was tracked.
func (s *StudyService) ResetCard(ctx context.Context, userID uuid.UUID, cardID string) (bool, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return false, err
	}
	defer sess.mu.Unlock()

	if !sess.scheduler.ResetCard(cardID) {
		return false, nil
	}
	err = s.persist(ctx, userID, func(ctx context.Context, tx txStores) error {
		err := tx.cardStates.Delete(ctx, userID, cardID)
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, NewServiceError("reset_card", "failed to delete card state", err)
	}
	return true, nil
}

// ResetAll forgets every card state, the statistics and the review history.
// The policy is kept.
func (s *StudyService) ResetAll(ctx context.Context, userID uuid.UUID) error {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	sess.scheduler.ResetAll()
	err = s.persist(ctx, userID, func(ctx context.Context, tx txStores) error {
		if _, err := tx.cardStates.DeleteAll(ctx, userID); err != nil {
			return err
		}
		if err := tx.statistics.Delete(ctx, userID); err != nil {
			return err
		}
		_, err := tx.reviewLog.DeleteAll(ctx, userID)
		return err
	})
	if err != nil {
		return NewServiceError("reset_all", "failed to delete scheduling data", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("scheduling data reset",
		slog.String("user_id", userID.String()))
	return nil
}

// Stats returns the dashboard statistics.
func (s *StudyService) Stats(ctx context.Context, userID uuid.UUID) (domain.StudyStats, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return domain.StudyStats{}, err
	}
	return sess.scheduler.GetStudyStats(), nil
}

// DifficultyDistribution returns tracked cards by ease band.
func (s *StudyService) DifficultyDistribution(ctx context.Context, userID uuid.UUID) (domain.DifficultyDistribution, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return domain.DifficultyDistribution{}, err
	}
	return sess.scheduler.GetDifficultyDistribution(), nil
}

// History returns per-day review counts for the trailing days. Sessions keep
// Config.HistoryDays of events, so longer windows are shortened to that.
func (s *StudyService) History(ctx context.Context, userID uuid.UUID, days int) ([]domain.DayBucket, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.scheduler.GetStudyHistory(min(days, s.cfg.HistoryDays)), nil
}

// Performance returns the statistics adaptation would act on.
func (s *StudyService) Performance(ctx context.Context, userID uuid.UUID) (domain.PerformanceStats, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return domain.PerformanceStats{}, err
	}
	return sess.scheduler.Performance(s.cfg.PerformanceWindowDays), nil
}
