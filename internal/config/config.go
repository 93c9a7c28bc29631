// Package config defines the console configuration and its loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and CMS_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Sentinel error kinds returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the marketplace REST API, e.g.
	// "https://admin.talentiave.com/api/api".
	BackendURL string `koanf:"backend_url"`

	// UpstreamTimeoutMS bounds each backend call. Zero leaves the call
	// unbounded apart from the request context.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// SessionBackend is "memory" or "redis".
	SessionBackend string `koanf:"session_backend"`

	// SessionTTLMinutes caps how long a session entry is retained.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// SessionCookieSecure marks the session cookie Secure (HTTPS only).
	SessionCookieSecure bool `koanf:"session_cookie_secure"`

	// Redis connection settings, used when SessionBackend is "redis".
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// TalentsPageSize is the limit sent with GET /talents.
	TalentsPageSize int `koanf:"talents_page_size"`

	// FlashTTLMS is how long a transient confirmation stays visible.
	FlashTTLMS int `koanf:"flash_ttl_ms"`

	// ConfirmNonceCapacity bounds outstanding activate/deactivate confirmations.
	ConfirmNonceCapacity int `koanf:"confirm_nonce_capacity"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is how often process and session gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":3000",
		BackendURL:           "http://localhost:5000/api",
		UpstreamTimeoutMS:    15_000,
		SessionBackend:       SessionBackendMemory,
		SessionTTLMinutes:    12 * 60,
		RedisAddr:            "localhost:6379",
		RedisPrefix:          "cms:session:",
		TalentsPageSize:      10,
		FlashTTLMS:           3_000,
		ConfirmNonceCapacity: 10_000,
		MetricsEnabled:       true,
		MetricsRefreshMS:     10_000,
	}
}

// UpstreamTimeout returns the backend call timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// SessionTTL returns the session retention period.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// FlashTTL returns how long transient confirmations are shown.
func (c *Config) FlashTTL() time.Duration {
	return time.Duration(c.FlashTTLMS) * time.Millisecond
}

// MetricsRefresh returns the gauge sampling interval.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate checks the configuration for values the console cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend_url must be an absolute URL", ErrInvalidConfig)
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis session backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session_backend %q", ErrInvalidConfig, c.SessionBackend)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("%w: session_ttl_minutes must be positive", ErrInvalidConfig)
	}
	if c.TalentsPageSize <= 0 {
		return fmt.Errorf("%w: talents_page_size must be positive", ErrInvalidConfig)
	}
	if c.UpstreamTimeoutMS < 0 {
		return fmt.Errorf("%w: upstream_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.MetricsRefreshMS <= 0 {
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
