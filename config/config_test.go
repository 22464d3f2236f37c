package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 10, cfg.Streams.DefaultMaxConcurrentStreams)
	assert.Equal(t, 60*time.Second, cfg.Streams.StaleAfter)
	assert.Equal(t, 0.10, cfg.Streams.ErrorRateThreshold)
	assert.Equal(t, float64(1000), cfg.Streams.LatencyThresholdMs)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.False(t, cfg.NATS.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing org",
			mutate:  func(c *Config) { c.Platform.Org = "" },
			wantErr: "platform.org is required",
		},
		{
			name:    "invalid org characters",
			mutate:  func(c *Config) { c.Platform.Org = "bad org!" },
			wantErr: "not valid for NATS subjects",
		},
		{
			name:    "missing platform id",
			mutate:  func(c *Config) { c.Platform.ID = "" },
			wantErr: "platform.id is required",
		},
		{
			name:    "zero max streams",
			mutate:  func(c *Config) { c.Streams.DefaultMaxConcurrentStreams = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "error rate above one",
			mutate:  func(c *Config) { c.Streams.ErrorRateThreshold = 1.5 },
			wantErr: "error_rate_threshold",
		},
		{
			name:    "negative stale window",
			mutate:  func(c *Config) { c.Streams.StaleAfter = -time.Second },
			wantErr: "stale_after",
		},
		{
			name:    "http port out of range",
			mutate:  func(c *Config) { c.Server.HTTPPort = 70000 },
			wantErr: "http_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Platform.Org = "c360"
			cfg.Platform.ID = "test-1"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateLowercasesOrg(t *testing.T) {
	cfg := Defaults()
	cfg.Platform.Org = "C360"
	cfg.Platform.ID = "test-1"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "c360", cfg.Platform.Org)
}

func TestLoaderLayering(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.json")
	require.NoError(t, os.WriteFile(base, []byte(`{
		"platform": {"org": "c360", "id": "base"},
		"streams": {"default_max_concurrent_streams": 5}
	}`), 0o600))

	override := filepath.Join(dir, "prod.json")
	require.NoError(t, os.WriteFile(override, []byte(`{
		"platform": {"id": "prod-1", "environment": "prod"},
		"streams": {"stale_after": "2m"}
	}`), 0o600))

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Later layers win, untouched fields survive from earlier layers.
	assert.Equal(t, "c360", cfg.Platform.Org)
	assert.Equal(t, "prod-1", cfg.Platform.ID)
	assert.Equal(t, "prod", cfg.Platform.Environment)
	assert.Equal(t, 5, cfg.Streams.DefaultMaxConcurrentStreams)
	assert.Equal(t, 2*time.Minute, cfg.Streams.StaleAfter)

	// Defaults fill everything not explicitly set.
	assert.Equal(t, 0.10, cfg.Streams.ErrorRateThreshold)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoaderMissingFile(t *testing.T) {
	loader := NewLoader()
	loader.AddLayer("/nonexistent/config.json")

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSTREAMS_PLATFORM_ORG", "envorg")
	t.Setenv("MARKETSTREAMS_NATS_URLS", "nats://a:4222,nats://b:4222")
	t.Setenv("MARKETSTREAMS_HTTP_PORT", "9999")
	t.Setenv("MARKETSTREAMS_DEFAULT_MAX_STREAMS", "25")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "envorg", cfg.Platform.Org)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 25, cfg.Streams.DefaultMaxConcurrentStreams)
}

func TestDurationAcceptsStringAndNumber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "durations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"nats": {"reconnect_wait": "5s"},
		"server": {"shutdown_timeout": 3000000000}
	}`), 0o600))

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.NATS.Password = "supersecret"
	cfg.NATS.Token = "tok123"

	s := cfg.String()
	assert.NotContains(t, s, "supersecret")
	assert.NotContains(t, s, "tok123")
	assert.Contains(t, s, "[REDACTED]")
}

func TestSafeConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Platform.Org = "c360"
	cfg.Platform.ID = "test-1"

	sc := NewSafeConfig(cfg)

	// Get returns a copy that callers cannot use to mutate shared state.
	got := sc.Get()
	got.Platform.ID = "mutated"
	assert.Equal(t, "test-1", sc.Get().Platform.ID)

	// Update rejects invalid configs.
	bad := Defaults()
	require.Error(t, sc.Update(bad))
	assert.Equal(t, "test-1", sc.Get().Platform.ID)

	good := Defaults()
	good.Platform.Org = "c360"
	good.Platform.ID = "updated"
	require.NoError(t, sc.Update(good))
	assert.Equal(t, "updated", sc.Get().Platform.ID)
}
