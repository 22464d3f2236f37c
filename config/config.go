package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Config represents the complete application configuration
type Config struct {
	Version  string         `json:"version"` // Semantic version of the config document
	Platform PlatformConfig `json:"platform"`
	NATS     NATSConfig     `json:"nats"`
	Server   ServerConfig   `json:"server"`
	Streams  StreamsConfig  `json:"streams"`
}

// PlatformConfig defines platform identity
type PlatformConfig struct {
	Org         string `json:"org"`         // Organization namespace (e.g., "c360")
	ID          string `json:"id"`          // Deployment identifier (e.g., "analytics-1")
	Environment string `json:"environment"` // "prod", "dev", "test"
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// ServerConfig defines the HTTP gateway and metrics endpoints
type ServerConfig struct {
	HTTPPort        int           `json:"http_port"`
	MetricsPort     int           `json:"metrics_port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty"`
}

// StreamsConfig defines defaults and thresholds for the stream subsystem
type StreamsConfig struct {
	// DefaultMaxConcurrentStreams is the quota applied to tenants without an
	// explicit configuration entry.
	DefaultMaxConcurrentStreams int `json:"default_max_concurrent_streams"`

	// StaleAfter is the freshness window for ACTIVE streams.
	StaleAfter time.Duration `json:"stale_after,omitempty"`

	// ErrorRateThreshold is the errors/messages ratio above which a stream is
	// reported unhealthy.
	ErrorRateThreshold float64 `json:"error_rate_threshold,omitempty"`

	// LatencyThresholdMs flags streams whose running-average latency exceeds it.
	LatencyThresholdMs float64 `json:"latency_threshold_ms,omitempty"`

	// HealthSweepInterval is how often the service re-evaluates all streams.
	HealthSweepInterval time.Duration `json:"health_sweep_interval,omitempty"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Platform.Org == "" {
		return errors.New("platform.org is required")
	}
	c.Platform.Org = strings.ToLower(c.Platform.Org)
	if !isValidSubjectPart(c.Platform.Org) {
		return fmt.Errorf(
			"platform.org '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Platform.Org,
		)
	}

	if c.Platform.ID == "" {
		return errors.New("platform.id is required")
	}

	if c.Streams.DefaultMaxConcurrentStreams < 1 {
		return errors.New("streams.default_max_concurrent_streams must be positive")
	}
	if c.Streams.ErrorRateThreshold < 0 || c.Streams.ErrorRateThreshold > 1 {
		return errors.New("streams.error_rate_threshold must be in [0, 1]")
	}
	if c.Streams.StaleAfter < 0 {
		return errors.New("streams.stale_after cannot be negative")
	}

	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return errors.New("server.http_port out of range")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return errors.New("server.metrics_port out of range")
	}

	return nil
}

// isValidSubjectPart checks if a string is valid for use in NATS subjects
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// String returns a JSON representation of the config with secrets redacted
func (c *Config) String() string {
	clone := c.Clone()
	if clone.NATS.Password != "" {
		clone.NATS.Password = "[REDACTED]"
	}
	if clone.NATS.Token != "" {
		clone.NATS.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}

// UnmarshalJSON implements custom JSON unmarshaling so duration fields accept
// both Go duration strings ("2s") and raw nanosecond numbers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		NATS struct {
			Enabled       bool     `json:"enabled"`
			URLs          []string `json:"urls,omitempty"`
			MaxReconnects int      `json:"max_reconnects,omitempty"`
			ReconnectWait any      `json:"reconnect_wait,omitempty"`
			Username      string   `json:"username,omitempty"`
			Password      string   `json:"password,omitempty"`
			Token         string   `json:"token,omitempty"`
		} `json:"nats"`
		Server struct {
			HTTPPort        int `json:"http_port"`
			MetricsPort     int `json:"metrics_port"`
			ShutdownTimeout any `json:"shutdown_timeout,omitempty"`
		} `json:"server"`
		Streams struct {
			DefaultMaxConcurrentStreams int     `json:"default_max_concurrent_streams"`
			StaleAfter                  any     `json:"stale_after,omitempty"`
			ErrorRateThreshold          float64 `json:"error_rate_threshold,omitempty"`
			LatencyThresholdMs          float64 `json:"latency_threshold_ms,omitempty"`
			HealthSweepInterval         any     `json:"health_sweep_interval,omitempty"`
		} `json:"streams"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.NATS.Enabled = aux.NATS.Enabled
	c.NATS.URLs = aux.NATS.URLs
	c.NATS.MaxReconnects = aux.NATS.MaxReconnects
	c.NATS.Username = aux.NATS.Username
	c.NATS.Password = aux.NATS.Password
	c.NATS.Token = aux.NATS.Token

	c.Server.HTTPPort = aux.Server.HTTPPort
	c.Server.MetricsPort = aux.Server.MetricsPort

	c.Streams.DefaultMaxConcurrentStreams = aux.Streams.DefaultMaxConcurrentStreams
	c.Streams.ErrorRateThreshold = aux.Streams.ErrorRateThreshold
	c.Streams.LatencyThresholdMs = aux.Streams.LatencyThresholdMs

	var err error
	if c.NATS.ReconnectWait, err = parseDurationField(aux.NATS.ReconnectWait); err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	if c.Server.ShutdownTimeout, err = parseDurationField(aux.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if c.Streams.StaleAfter, err = parseDurationField(aux.Streams.StaleAfter); err != nil {
		return fmt.Errorf("streams.stale_after: %w", err)
	}
	if c.Streams.HealthSweepInterval, err = parseDurationField(aux.Streams.HealthSweepInterval); err != nil {
		return fmt.Errorf("streams.health_sweep_interval: %w", err)
	}

	return nil
}

// parseDurationField accepts either a duration string or a float64 of nanoseconds
func parseDurationField(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		if val == "" {
			return 0, nil
		}
		return time.ParseDuration(val)
	case float64:
		return time.Duration(val), nil
	default:
		return 0, fmt.Errorf("unsupported duration value %v", v)
	}
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers    []string
	envPrefix string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "MARKETSTREAMS",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads defaults, merges all configuration layers in order, then applies
// environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		layer, err := l.loadJSONFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = merge(cfg, layer)
	}

	l.applyEnvOverrides(cfg)
	return cfg, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Version: "1.0.0",
		Platform: PlatformConfig{
			Environment: "dev",
		},
		NATS: NATSConfig{
			Enabled:       false,
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Streams: StreamsConfig{
			DefaultMaxConcurrentStreams: 10,
			StaleAfter:                  60 * time.Second,
			ErrorRateThreshold:          0.10,
			LatencyThresholdMs:          1000,
			HealthSweepInterval:         30 * time.Second,
		},
	}
}

// loadJSONFile loads a config layer from a JSON file
func (l *Loader) loadJSONFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator CLI flags
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays non-zero fields of the layer onto the base
func merge(base, layer *Config) *Config {
	if layer == nil {
		return base
	}

	out := base.Clone()

	if layer.Version != "" {
		out.Version = layer.Version
	}
	if layer.Platform.Org != "" {
		out.Platform.Org = layer.Platform.Org
	}
	if layer.Platform.ID != "" {
		out.Platform.ID = layer.Platform.ID
	}
	if layer.Platform.Environment != "" {
		out.Platform.Environment = layer.Platform.Environment
	}

	if layer.NATS.Enabled {
		out.NATS.Enabled = true
	}
	if len(layer.NATS.URLs) > 0 {
		out.NATS.URLs = layer.NATS.URLs
	}
	if layer.NATS.MaxReconnects != 0 {
		out.NATS.MaxReconnects = layer.NATS.MaxReconnects
	}
	if layer.NATS.ReconnectWait != 0 {
		out.NATS.ReconnectWait = layer.NATS.ReconnectWait
	}
	if layer.NATS.Username != "" {
		out.NATS.Username = layer.NATS.Username
	}
	if layer.NATS.Password != "" {
		out.NATS.Password = layer.NATS.Password
	}
	if layer.NATS.Token != "" {
		out.NATS.Token = layer.NATS.Token
	}

	if layer.Server.HTTPPort != 0 {
		out.Server.HTTPPort = layer.Server.HTTPPort
	}
	if layer.Server.MetricsPort != 0 {
		out.Server.MetricsPort = layer.Server.MetricsPort
	}
	if layer.Server.ShutdownTimeout != 0 {
		out.Server.ShutdownTimeout = layer.Server.ShutdownTimeout
	}

	if layer.Streams.DefaultMaxConcurrentStreams != 0 {
		out.Streams.DefaultMaxConcurrentStreams = layer.Streams.DefaultMaxConcurrentStreams
	}
	if layer.Streams.StaleAfter != 0 {
		out.Streams.StaleAfter = layer.Streams.StaleAfter
	}
	if layer.Streams.ErrorRateThreshold != 0 {
		out.Streams.ErrorRateThreshold = layer.Streams.ErrorRateThreshold
	}
	if layer.Streams.LatencyThresholdMs != 0 {
		out.Streams.LatencyThresholdMs = layer.Streams.LatencyThresholdMs
	}
	if layer.Streams.HealthSweepInterval != 0 {
		out.Streams.HealthSweepInterval = layer.Streams.HealthSweepInterval
	}

	return out
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_PLATFORM_ORG"); val != "" {
		cfg.Platform.Org = val
	}
	if val := os.Getenv(l.envPrefix + "_PLATFORM_ID"); val != "" {
		cfg.Platform.ID = val
	}
	if val := os.Getenv(l.envPrefix + "_ENVIRONMENT"); val != "" {
		cfg.Platform.Environment = val
	}

	if val := os.Getenv(l.envPrefix + "_NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
		cfg.NATS.Enabled = true
	}
	if val := os.Getenv(l.envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}

	if val := os.Getenv(l.envPrefix + "_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.MetricsPort = port
		}
	}

	if val := os.Getenv(l.envPrefix + "_DEFAULT_MAX_STREAMS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Streams.DefaultMaxConcurrentStreams = n
		}
	}
}
