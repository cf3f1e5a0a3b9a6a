// Package config loads and validates the client configuration from YAML.
// Every section has working defaults; an empty file yields a usable config.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/uistream/errors"
	"github.com/c360/uistream/pkg/breaker"
	"github.com/c360/uistream/pkg/dedup"
	"github.com/c360/uistream/pkg/retry"
)

// Config is the complete client configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Retry     RetryConfig     `yaml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Stream    StreamConfig    `yaml:"stream"`
	Binding   BindingConfig   `yaml:"binding"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// APIConfig describes the upstream endpoint
type APIConfig struct {
	BaseURL   string   `yaml:"base_url"`
	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// RetryConfig mirrors retry.Policy
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
	Multiplier   float64  `yaml:"multiplier"`
	Jitter       float64  `yaml:"jitter"`
}

// Policy converts to a retry policy
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay.Std(),
		MaxDelay:     c.MaxDelay.Std(),
		Multiplier:   c.Multiplier,
		Jitter:       c.Jitter,
	}
}

// BreakerConfig mirrors breaker.Config
type BreakerConfig struct {
	FailureThreshold         int      `yaml:"failure_threshold"`
	RecoveryTimeout          Duration `yaml:"recovery_timeout"`
	HalfOpenSuccessThreshold int      `yaml:"half_open_success_threshold"`
}

// BreakerConfig converts to the breaker package's config
func (c BreakerConfig) BreakerConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold:         c.FailureThreshold,
		RecoveryTimeout:          c.RecoveryTimeout.Std(),
		HalfOpenSuccessThreshold: c.HalfOpenSuccessThreshold,
	}
}

// RateLimitConfig configures the 429 window
type RateLimitConfig struct {
	DefaultWindow Duration `yaml:"default_window"`
}

// DedupConfig mirrors dedup.Config
type DedupConfig struct {
	Enabled    bool     `yaml:"enabled"`
	MaxEntries int      `yaml:"max_entries"`
	Window     Duration `yaml:"window"`
}

// DedupConfig converts to the dedup package's config
func (c DedupConfig) DedupConfig() dedup.Config {
	return dedup.Config{
		Enabled:    c.Enabled,
		MaxEntries: c.MaxEntries,
		Window:     c.Window.Std(),
	}
}

// StreamConfig configures stream handling
type StreamConfig struct {
	InactivityTimeout Duration `yaml:"inactivity_timeout"`
	RequestTimeout    Duration `yaml:"request_timeout"`
	BufferSize        int      `yaml:"buffer_size"`
}

// BindingConfig configures the binding engine
type BindingConfig struct {
	MaxCacheSize int `yaml:"max_cache_size"`
}

// MetricsConfig configures the collector
type MetricsConfig struct {
	MaxEvents   int    `yaml:"max_events"`
	NATSSubject string `yaml:"nats_subject"`
}

// Default returns the configuration used when a section is absent
func Default() *Config {
	return &Config{
		API: APIConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
			Timeout:   Duration(60 * time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: Duration(time.Second),
			MaxDelay:     Duration(30 * time.Second),
			Multiplier:   2,
		},
		Breaker: BreakerConfig{
			FailureThreshold:         5,
			RecoveryTimeout:          Duration(30 * time.Second),
			HalfOpenSuccessThreshold: 2,
		},
		RateLimit: RateLimitConfig{
			DefaultWindow: Duration(60 * time.Second),
		},
		Dedup: DedupConfig{
			Enabled:    true,
			MaxEntries: 100,
			Window:     Duration(5 * time.Second),
		},
		Stream: StreamConfig{
			InactivityTimeout: Duration(30 * time.Second),
			RequestTimeout:    Duration(60 * time.Second),
			BufferSize:        16,
		},
		Binding: BindingConfig{
			MaxCacheSize: 256,
		},
		Metrics: MetricsConfig{
			MaxEvents:   1000,
			NATSSubject: "uistream.metrics",
		},
	}
}

// Load reads a YAML config file, fills absent fields with defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read config file")
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, fills absent fields with defaults, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "decode YAML")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for zero-valued fields that a partial
// YAML section left behind.
func (c *Config) applyDefaults() {
	def := Default()
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.MaxTokens <= 0 {
		c.API.MaxTokens = def.API.MaxTokens
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = def.Retry.Multiplier
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = def.Breaker.FailureThreshold
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		c.Breaker.RecoveryTimeout = def.Breaker.RecoveryTimeout
	}
	if c.Breaker.HalfOpenSuccessThreshold <= 0 {
		c.Breaker.HalfOpenSuccessThreshold = def.Breaker.HalfOpenSuccessThreshold
	}
	if c.RateLimit.DefaultWindow <= 0 {
		c.RateLimit.DefaultWindow = def.RateLimit.DefaultWindow
	}
	if c.Dedup.MaxEntries <= 0 {
		c.Dedup.MaxEntries = def.Dedup.MaxEntries
	}
	if c.Dedup.Window <= 0 {
		c.Dedup.Window = def.Dedup.Window
	}
	if c.Stream.InactivityTimeout <= 0 {
		c.Stream.InactivityTimeout = def.Stream.InactivityTimeout
	}
	if c.Stream.RequestTimeout <= 0 {
		c.Stream.RequestTimeout = def.Stream.RequestTimeout
	}
	if c.Stream.BufferSize <= 0 {
		c.Stream.BufferSize = def.Stream.BufferSize
	}
	if c.Binding.MaxCacheSize <= 0 {
		c.Binding.MaxCacheSize = def.Binding.MaxCacheSize
	}
	if c.Metrics.MaxEvents <= 0 {
		c.Metrics.MaxEvents = def.Metrics.MaxEvents
	}
	if c.Metrics.NATSSubject == "" {
		c.Metrics.NATSSubject = def.Metrics.NATSSubject
	}
}

// Validate rejects configurations that would misbehave at runtime
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "config", "Validate", "api.base_url is required")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return errors.WrapInvalid(errors.ErrInvalidData, "config", "Validate", "retry.jitter must be in [0,1]")
	}
	return nil
}
