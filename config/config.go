// Package config loads the coopdesk configuration from a YAML file, COOPDESK_
// environment variables and built-in defaults, in decreasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Model        ModelConfig        `mapstructure:"model" yaml:"model"`
	Turn         TurnConfig         `mapstructure:"turn" yaml:"turn"`
	Compaction   CompactionConfig   `mapstructure:"compaction" yaml:"compaction"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Verification VerificationConfig `mapstructure:"verification" yaml:"verification"`
	Knowledge    KnowledgeConfig    `mapstructure:"knowledge" yaml:"knowledge"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig configures the zerolog backend.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Redact bool   `mapstructure:"redact" yaml:"redact"`
}

// ModelConfig selects the language model service.
type ModelConfig struct {
	// Provider is openai, anthropic or scripted.
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Name        string  `mapstructure:"name" yaml:"name"`
	SummaryName string  `mapstructure:"summary_name" yaml:"summary_name"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
}

// TurnConfig bounds the work of one turn.
type TurnConfig struct {
	MaxRetries         int `mapstructure:"max_retries" yaml:"max_retries"`
	MaxModelCalls      int `mapstructure:"max_model_calls" yaml:"max_model_calls"`
	MaxHistoryMessages int `mapstructure:"max_history_messages" yaml:"max_history_messages"`
	// Timeout bounds one turn including its model and tool calls. A turn
	// that runs out of time replies with an apology.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CompactionConfig configures history summarization.
type CompactionConfig struct {
	Enabled          bool `mapstructure:"enabled" yaml:"enabled"`
	MaxTokens        int  `mapstructure:"max_tokens" yaml:"max_tokens"`
	KeepRecent       int  `mapstructure:"keep_recent" yaml:"keep_recent"`
	SummaryMaxTokens int  `mapstructure:"summary_max_tokens" yaml:"summary_max_tokens"`
}

// StoreConfig selects the checkpoint store.
type StoreConfig struct {
	// Backend is memory, redis or sqlite.
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite" yaml:"sqlite"`
}

// RedisConfig locates the Redis server shared by sessions, locks and
// verification records.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// SQLiteConfig locates the SQLite database.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// VerificationConfig configures the one-time code flow.
type VerificationConfig struct {
	TTL         time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Contact     string        `mapstructure:"contact" yaml:"contact"`
	CountryCode string        `mapstructure:"country_code" yaml:"country_code"`
	MockCode    string        `mapstructure:"mock_code" yaml:"mock_code"`
}

// KnowledgeConfig locates the department documents. An empty Dir uses the
// bundled sample documents.
type KnowledgeConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// MetricsConfig toggles the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console", Redact: true},
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "gpt-4o-mini",
			SummaryName: "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Turn:       TurnConfig{MaxRetries: 1, MaxModelCalls: 12, Timeout: 60 * time.Second},
		Compaction: CompactionConfig{Enabled: true, MaxTokens: 6000, KeepRecent: 6, SummaryMaxTokens: 512},
		Store: StoreConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			LockTTL: 30 * time.Second,
			Redis:   RedisConfig{Addr: "localhost:6379"},
			SQLite:  SQLiteConfig{Path: "coopdesk.db"},
		},
		Verification: VerificationConfig{
			TTL:         10 * time.Minute,
			Contact:     "+573024682891",
			CountryCode: "+57",
			MockCode:    "123456",
		},
		Knowledge: KnowledgeConfig{Dir: ""},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	switch c.Model.Provider {
	case "openai", "anthropic", "scripted":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be openai, anthropic or scripted, got %q", c.Model.Provider))
	}

	if c.Model.Provider != "scripted" && c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}

	if c.Turn.MaxRetries < 0 {
		errs = append(errs, errors.New("turn.max_retries must not be negative"))
	}

	if c.Turn.MaxModelCalls < 0 {
		errs = append(errs, errors.New("turn.max_model_calls must not be negative"))
	}

	if c.Turn.Timeout <= 0 {
		errs = append(errs, errors.New("turn.timeout must be positive"))
	}

	if c.Compaction.Enabled {
		if c.Compaction.MaxTokens <= 0 {
			errs = append(errs, errors.New("compaction.max_tokens must be positive"))
		}

		if c.Compaction.KeepRecent < 1 {
			errs = append(errs, errors.New("compaction.keep_recent must be at least 1"))
		}
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}

		if c.Store.LockTTL <= 0 {
			errs = append(errs, errors.New("store.lock_ttl must be positive for the redis backend"))
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be memory, redis or sqlite, got %q", c.Store.Backend))
	}

	if c.Verification.TTL <= 0 {
		errs = append(errs, errors.New("verification.ttl must be positive"))
	}

	return errors.Join(errs...)
}
