package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
)

// Review is the outcome of one grading call: everything a caller has to
// persist.
type Review struct {
	State      domain.CardMemoryState
	Statistics domain.StudyStatistics
	Event      domain.ReviewEvent
}

// Snapshot is a scheduler's complete session.
type Snapshot struct {
	States     []*domain.CardMemoryState
	Statistics domain.StudyStatistics
	Events     []domain.ReviewEvent
}

// Scheduler is the review scheduler of one learner.
type Scheduler struct {
	mu     sync.Mutex
	store  *StateStore
	stats  domain.StudyStatistics
	events []domain.ReviewEvent

	// reviews counts RecordReview calls since New. It never decreases.
	reviews uint64

	params        ParamsProvider
	now           func() time.Time
	loc           *time.Location
	logger        *slog.Logger
	retentionDays int
}

// New creates a Scheduler that owns store. A nil store starts empty.
func New(store *StateStore, opts ...Option) *Scheduler {
	if store == nil {
		store = NewStateStore()
	}
	s := &Scheduler{
		store:  store,
		params: defaultParams{},
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "review_scheduler"))
	return s
}

// RecordAnswer grades a card and returns its updated state. A card without
// state is initialised as new. Grades outside 0..5 are clamped.
func (s *Scheduler) RecordAnswer(
	cardID string,
	grade domain.Grade,
	responseTime *time.Duration,
) domain.CardMemoryState {
	return s.RecordReview(cardID, grade, responseTime).State
}

// RecordReview grades a card like RecordAnswer and also returns the updated
// statistics and the review event.
func (s *Scheduler) RecordReview(
	cardID string,
	grade domain.Grade,
	responseTime *time.Duration,
) Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	grade = grade.Clamp()
	algo := srs.NewServiceWithParams(s.params.Params())

	current, ok := s.store.Get(cardID)
	if !ok {
		current = algo.NewState(cardID, now)
	}

	next, err := algo.CalculateNextReview(current, grade, now)
	if err != nil {
		// Unreachable with a clamped grade and a non-nil state.
		s.logger.Error("failed to calculate next review",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()))
		next = current
	}
	s.store.Put(next)

	s.updateStatistics(grade, now)

	event := domain.NewReviewEvent(next, current.Repetitions, responseTime, now)
	s.events = append(s.events, event)
	s.reviews++
	s.trimEventsLocked(now)

	s.logger.Debug("answer recorded",
		slog.String("card_id", cardID),
		slog.Int("grade", int(grade)),
		slog.Int("repetitions", next.Repetitions),
		slog.Float64("ease_factor", next.EaseFactor),
		slog.Int("interval", next.Interval))

	return Review{
		State:      *next.Clone(),
		Statistics: s.statisticsLocked(),
		Event:      event,
	}
}

// updateStatistics must be called with s.mu held.
func (s *Scheduler) updateStatistics(grade domain.Grade, now time.Time) {
	s.stats.TotalReviews++
	if grade.IsCorrect() {
		s.stats.CorrectAnswers++
	} else {
		s.stats.IncorrectAnswers++
	}

	switch {
	case s.stats.LastStudySession == nil || s.stats.StudyStreak == 0:
		s.stats.StudyStreak = 1
	default:
		gap := s.daysBetween(*s.stats.LastStudySession, now)
		switch {
		case gap <= 0:
			// same day: hold
		case gap == 1:
			s.stats.StudyStreak++
		default:
			s.stats.StudyStreak = 1
		}
	}

	last := now
	s.stats.LastStudySession = &last
}

// trimEventsLocked drops events older than the retention window. Events must
// be sorted.
func (s *Scheduler) trimEventsLocked(now time.Time) {
	if s.retentionDays <= 0 || len(s.events) == 0 {
		return
	}
	start := s.startOfDay(now).AddDate(0, 0, -(s.retentionDays - 1))
	i := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].ReviewedAt.Before(start)
	})
	if i > 0 {
		s.events = append(s.events[:0], s.events[i:]...)
	}
}

// ReviewCount returns how many reviews this scheduler has recorded since it
// was created. Restore and the reset methods leave it unchanged.
func (s *Scheduler) ReviewCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviews
}

// startOfDay returns local midnight of the day containing t.
func (s *Scheduler) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// daysBetween counts calendar days in the scheduler's location from a to b.
func (s *Scheduler) daysBetween(a, b time.Time) int {
	ay, am, ad := a.In(s.loc).Date()
	by, bm, bd := b.In(s.loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / domain.Day)
}

// GetDueCards returns the cards that have no state or whose next review is
// not in the future, in input order.
func (s *Scheduler) GetDueCards(cards []domain.CardRef) []domain.CardRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	due := make([]domain.CardRef, 0, len(cards))
	for _, card := range cards {
		if s.isDueLocked(card.ID, now) {
			due = append(due, card)
		}
	}
	return due
}

func (s *Scheduler) isDueLocked(cardID string, now time.Time) bool {
	state, ok := s.store.states[cardID]
	return !ok || state.IsDue(now)
}

// GetStudyBatch selects due cards subject to daily caps. Cards that were
// never graded count against newLimit, even if postponed; the rest count
// against reviewLimit. Cards introduced and reviews done earlier today are
// subtracted first. Input order is preserved.
func (s *Scheduler) GetStudyBatch(cards []domain.CardRef, newLimit, reviewLimit int) []domain.CardRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	newToday, reviewsToday := s.todayCountsLocked(now)
	newLeft := max(0, newLimit-newToday)
	reviewsLeft := max(0, reviewLimit-reviewsToday)

	batch := make([]domain.CardRef, 0)
	for _, card := range cards {
		if !s.isDueLocked(card.ID, now) {
			continue
		}
		if state, ok := s.store.states[card.ID]; ok && state.Reviewed() {
			if reviewsLeft > 0 {
				batch = append(batch, card)
				reviewsLeft--
			}
			continue
		}
		if newLeft > 0 {
			batch = append(batch, card)
			newLeft--
		}
	}
	return batch
}

// todayCountsLocked returns how many first gradings and how many repeat
// reviews happened since local midnight.
func (s *Scheduler) todayCountsLocked(now time.Time) (newCards, reviews int) {
	midnight := s.startOfDay(now)
	for _, e := range s.events {
		if e.ReviewedAt.Before(midnight) {
			continue
		}
		if e.PrevRepetitions == 0 {
			newCards++
		} else {
			reviews++
		}
	}
	return newCards, reviews
}

// State returns the state of cardID if it is tracked.
func (s *Scheduler) State(cardID string) (*domain.CardMemoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(cardID)
}

// Postpone pushes a card's next review back by days. An untracked card gets
// a fresh state that becomes due after the delay.
func (s *Scheduler) Postpone(cardID string, days int) (*domain.CardMemoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	algo := srs.NewServiceWithParams(s.params.Params())
	current, ok := s.store.Get(cardID)
	if !ok {
		current = algo.NewState(cardID, s.now())
	}

	next, err := algo.PostponeReview(current, days)
	if err != nil {
		return nil, err
	}
	s.store.Put(next)

	s.logger.Debug("review postponed",
		slog.String("card_id", cardID),
		slog.Int("days", days),
		slog.Time("next_review", next.NextReview))
	return next, nil
}

// ResetCard forgets the state of one card and reports whether it was tracked.
// The card becomes new and due.
func (s *Scheduler) ResetCard(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.store.Delete(cardID)
	if removed {
		s.logger.Debug("card reset", slog.String("card_id", cardID))
	}
	return removed
}

// ResetAll forgets every card state, zeroes the statistics and clears the
// review history.
func (s *Scheduler) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.stats = domain.StudyStatistics{}
	s.events = nil
	s.logger.Debug("all scheduling state reset")
}

// Statistics returns a copy of the aggregate statistics.
func (s *Scheduler) Statistics() domain.StudyStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statisticsLocked()
}

func (s *Scheduler) statisticsLocked() domain.StudyStatistics {
	stats := s.stats
	if stats.LastStudySession != nil {
		t := *stats.LastStudySession
		stats.LastStudySession = &t
	}
	return stats
}

// Snapshot returns copies of the complete session.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		States:     s.store.All(),
		Statistics: s.statisticsLocked(),
		Events:     append([]domain.ReviewEvent(nil), s.events...),
	}
}

// Restore replaces the session with snap. Events are kept in chronological
// order.
func (s *Scheduler) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	for _, state := range snap.States {
		if state != nil {
			s.store.Put(state)
		}
	}

	s.stats = snap.Statistics
	if s.stats.LastStudySession != nil {
		t := *s.stats.LastStudySession
		s.stats.LastStudySession = &t
	}

	s.events = append([]domain.ReviewEvent(nil), snap.Events...)
	sortEvents(s.events)
	s.trimEventsLocked(s.now())

	s.logger.Debug("session restored",
		slog.Int("cards", s.store.Len()),
		slog.Int("events", len(s.events)))
}
