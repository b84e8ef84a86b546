// Package config loads settings from defaults, an optional YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
// SPACEDREP_SCHEDULER__MAX_INTERVAL_DAYS sets scheduler.max_interval_days.
const EnvPrefix = "SPACEDREP_"

// Config is the full application configuration.
type Config struct {
	DB       string `koanf:"db" validate:"required"`
	Addr     string `koanf:"addr" validate:"required,hostname_port"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Scheduler SchedulerConfig `koanf:"scheduler"`
	Review    ReviewConfig    `koanf:"review"`
}

// SchedulerConfig tunes the SM-2 scheduler and due-card ordering.
type SchedulerConfig struct {
	// MaxIntervalDays caps review intervals; 0 leaves them uncapped.
	MaxIntervalDays int  `koanf:"max_interval_days" validate:"gte=0"`
	NewCardsFirst   bool `koanf:"new_cards_first"`
}

// ReviewConfig controls review submission.
type ReviewConfig struct {
	// MaxAttempts bounds the reload-and-retry loop on concurrent updates.
	MaxAttempts int `koanf:"max_attempts" validate:"gte=1,lte=20"`
	// DueLimit is the default number of cards returned by a due query.
	DueLimit int `koanf:"due_limit" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:       "spacedrep.db",
		Addr:     "localhost:8080",
		ReposDir: "repos",
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			MaxIntervalDays: 0,
			NewCardsFirst:   true,
		},
		Review: ReviewConfig{
			MaxAttempts: 3,
			DueLimit:    50,
		},
	}
}

// RegisterFlags adds the flags that override configuration keys to fs.
// Flag names use dashes where keys use underscores.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("db", d.DB, "Path to the SQLite database file")
	fs.String("addr", d.Addr, "Address for the HTTP server to listen on")
	fs.String("repos-dir", d.ReposDir, "Directory git sources are cloned into")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	fs.Int("max-interval", d.Scheduler.MaxIntervalDays, "Cap on review intervals in days (0 = uncapped)")
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"db":           "db",
	"addr":         "addr",
	"repos-dir":    "repos_dir",
	"log-level":    "log_level",
	"max-interval": "scheduler.max_interval_days",
}

// Load builds the configuration. The YAML file is read from the "config"
// flag when fs is non-nil and the flag is set. Only flags the user actually
// changed override file and environment values.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks cfg against its validation tags.
func Validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
