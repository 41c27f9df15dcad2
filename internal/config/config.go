package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"required,oneof=json text"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// RateLimit is the sustained number of requests per second allowed per
	// client; RateBurst is the bucket size.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is a postgres connection URL or a sqlite file path.
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	// JWTSecret verifies the HS256 signature of bearer tokens issued by the
	// identity provider.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// SchedulerConfig contains scheduling and adaptation settings.
type SchedulerConfig struct {
	DefaultPreset string `mapstructure:"default_preset" validate:"required"`
	AdaptiveMode  string `mapstructure:"adaptive_mode"  validate:"required,oneof=off advisory automatic"`

	// Timezone is the IANA zone whose midnights delimit study days.
	Timezone string `mapstructure:"timezone" validate:"required"`

	// AdaptationInterval is how often the background runner adapts every
	// active user's policy. Zero disables the runner.
	AdaptationInterval time.Duration `mapstructure:"adaptation_interval" validate:"gte=0"`

	// PerformanceWindowDays is the number of days of reviews adaptation looks at.
	PerformanceWindowDays int `mapstructure:"performance_window_days" validate:"gte=1,lte=365"`

	// HistoryDays is how many days of review events a session loads.
	HistoryDays int `mapstructure:"history_days" validate:"gte=1"`
}

// Location resolves Timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
