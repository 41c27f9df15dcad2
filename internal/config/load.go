package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCRY"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.read_timeout":     "15s",
	"server.write_timeout":    "15s",
	"server.shutdown_timeout": "10s",
	"server.rate_limit":       10.0,
	"server.rate_burst":       20,

	"database.driver":         "postgres",
	"database.max_open_conns": 10,

	"scheduler.default_preset":          "standard",
	"scheduler.adaptive_mode":           "advisory",
	"scheduler.timezone":                "UTC",
	"scheduler.adaptation_interval":     "1h",
	"scheduler.performance_window_days": 14,
	"scheduler.history_days":            90,
}

// Keys without defaults must be bound explicitly for AutomaticEnv to see them
// during Unmarshal.
var requiredEnv = []string{
	"database.url",
	"auth.jwt_secret",
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. Environment
// variables use the SCRY_ prefix with dots replaced by underscores, e.g.
// SCRY_DATABASE_URL. An empty configFile looks for config.yaml in the working
// directory and tolerates its absence.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range requiredEnv {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags and resolves the timezone.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := cfg.Scheduler.Location(); err != nil {
		return fmt.Errorf("configuration validation failed: scheduler.timezone: %w", err)
	}
	return nil
}
