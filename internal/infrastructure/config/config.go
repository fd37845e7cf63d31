package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all broker configuration.
type Config struct {
	Server    ServerConfig
	Audio     AudioConfig
	Webhook   WebhookConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Lock      LockConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AudioConfig selects the routing mode and the zone layout.
type AudioConfig struct {
	DynamicRouting bool `envconfig:"AUDIO_DYNAMIC_ROUTING" default:"true"`
	CarFocus       bool `envconfig:"AUDIO_CAR_FOCUS" default:"true"`
	// ZoneConfigPath points at a TOML or YAML zone file; empty uses the
	// built-in layout.
	ZoneConfigPath string `envconfig:"AUDIO_ZONE_CONFIG"`
	// DuckingPackages may receive duckable loss events.
	DuckingPackages []string `envconfig:"AUDIO_DUCKING_PACKAGES"`
}

// WebhookConfig holds outbound focus event delivery configuration.
type WebhookConfig struct {
	Enabled           bool          `envconfig:"WEBHOOK_ENABLED" default:"true"`
	Timeout           time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
	MaxRetries        int           `envconfig:"WEBHOOK_MAX_RETRIES" default:"2"`
	RequestsPerSecond float64       `envconfig:"WEBHOOK_RPS" default:"50"`
	QueueSize         int           `envconfig:"WEBHOOK_QUEUE_SIZE" default:"1024"`
	Workers           int           `envconfig:"WEBHOOK_WORKERS" default:"4"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// LockConfig holds the single-instance lock file location.
type LockConfig struct {
	Path string `envconfig:"LOCK_PATH" default:"/tmp/carfocus.lock"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Audio.CarFocus && !c.Audio.DynamicRouting {
		return fmt.Errorf("car audio focus requires dynamic routing")
	}
	if c.Webhook.Workers < 1 {
		return fmt.Errorf("webhook workers must be positive, got %d", c.Webhook.Workers)
	}
	if c.Webhook.QueueSize < 1 {
		return fmt.Errorf("webhook queue size must be positive, got %d", c.Webhook.QueueSize)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive when enabled, got %d", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Audio: AudioConfig{
			DynamicRouting: true,
			CarFocus:       true,
		},
		Webhook: WebhookConfig{
			Enabled:           true,
			Timeout:           5 * time.Second,
			MaxRetries:        2,
			RequestsPerSecond: 50,
			QueueSize:         1024,
			Workers:           4,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Lock: LockConfig{
			Path: "/tmp/carfocus.lock",
		},
	}
}
