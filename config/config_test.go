package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
api:
  base_url: https://api.example.com
  api_key: secret
  model: test-model
  max_tokens: 1024
  timeout: 90s
retry:
  max_attempts: 5
  initial_delay: 500ms
  max_delay: 10s
  multiplier: 2
breaker:
  failure_threshold: 3
  recovery_timeout: 15s
  half_open_success_threshold: 1
rate_limit:
  default_window: 2m
dedup:
  enabled: true
  max_entries: 50
  window: 10s
stream:
  inactivity_timeout: 45s
binding:
  max_cache_size: 128
metrics:
  max_events: 500
  nats_subject: ui.metrics
`))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.API.Timeout.Std())

	policy := cfg.Retry.Policy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.InitialDelay)
	assert.Equal(t, 10*time.Second, policy.MaxDelay)

	bc := cfg.Breaker.BreakerConfig()
	assert.Equal(t, 3, bc.FailureThreshold)
	assert.Equal(t, 15*time.Second, bc.RecoveryTimeout)

	dc := cfg.Dedup.DedupConfig()
	assert.True(t, dc.Enabled)
	assert.Equal(t, 50, dc.MaxEntries)

	assert.Equal(t, 2*time.Minute, cfg.RateLimit.DefaultWindow.Std())
	assert.Equal(t, 45*time.Second, cfg.Stream.InactivityTimeout.Std())
	assert.Equal(t, 128, cfg.Binding.MaxCacheSize)
	assert.Equal(t, "ui.metrics", cfg.Metrics.NATSSubject)
}

func TestParse_MinimalUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("api:\n  base_url: https://api.example.com\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Retry.MaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, def.Breaker.FailureThreshold, cfg.Breaker.FailureThreshold)
	assert.Equal(t, def.Stream.InactivityTimeout, cfg.Stream.InactivityTimeout)
	assert.Equal(t, def.Stream.RequestTimeout, cfg.Stream.RequestTimeout)
	assert.Equal(t, def.Stream.BufferSize, cfg.Stream.BufferSize)
	assert.Equal(t, def.Binding.MaxCacheSize, cfg.Binding.MaxCacheSize)
}

func TestParse_PartialSectionBackfilled(t *testing.T) {
	cfg, err := Parse([]byte(`
api:
  base_url: https://api.example.com
retry:
  max_attempts: 7
`))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, Default().Retry.InitialDelay, cfg.Retry.InitialDelay,
		"unset fields in a present section fall back to defaults")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing base_url", "retry:\n  max_attempts: 3\n"},
		{"bad jitter", "api:\n  base_url: x\nretry:\n  jitter: 2\n"},
		{"malformed yaml", "api: [\n"},
		{"bad duration", "api:\n  base_url: x\n  timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://api.example.com\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDuration_Roundtrip(t *testing.T) {
	out, err := Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}
