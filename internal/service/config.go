package service

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// Config tunes a StudyService.
type Config struct {
	// DefaultPreset is the preset of users without a saved policy.
	DefaultPreset string
	// AdaptiveMode applies to every user's policy.
	AdaptiveMode policy.AdaptiveMode
	// Location delimits study days. Nil means UTC.
	Location *time.Location
	// PerformanceWindowDays is the span of reviews adaptation looks at.
	PerformanceWindowDays int
	// HistoryDays is how many days of review events a session loads.
	HistoryDays int
	// AdaptConcurrency bounds parallel work in AdaptAll.
	AdaptConcurrency int
}

func (c Config) withDefaults() Config {
	if c.DefaultPreset == "" {
		c.DefaultPreset = policy.DefaultPreset
	}
	if c.AdaptiveMode == "" {
		c.AdaptiveMode = policy.AdaptiveAdvisory
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.PerformanceWindowDays <= 0 {
		c.PerformanceWindowDays = 14
	}
	if c.HistoryDays < c.PerformanceWindowDays {
		c.HistoryDays = max(90, c.PerformanceWindowDays)
	}
	if c.AdaptConcurrency <= 0 {
		c.AdaptConcurrency = 4
	}
	return c
}

// Stores bundles the persistence the service needs. DB begins the
// transactions the stores join through WithTx.
type Stores struct {
	DB         store.TxBeginner
	CardStates store.CardStateStore
	Statistics store.StatisticsStore
	ReviewLog  store.ReviewLogStore
	Policies   store.PolicyStore
}

// txStores is Stores bound to one transaction.
type txStores struct {
	cardStates store.CardStateStore
	statistics store.StatisticsStore
	reviewLog  store.ReviewLogStore
	policies   store.PolicyStore
}

func (s Stores) withTx(tx *sql.Tx) txStores {
	return txStores{
		cardStates: s.CardStates.WithTx(tx),
		statistics: s.Statistics.WithTx(tx),
		reviewLog:  s.ReviewLog.WithTx(tx),
		policies:   s.Policies.WithTx(tx),
	}
}

// Option customizes a StudyService.
type Option func(*StudyService)

// WithClock overrides the time source of every session.
func WithClock(now func() time.Time) Option {
	return func(s *StudyService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEmitter publishes review and adjustment events to emitter.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(s *StudyService) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *StudyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}
