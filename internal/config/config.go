// Package config provides configuration loading and validation for the
// authorization gateway.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// InstanceIDEnvVar is the environment variable carrying the gateway
// instance identifier used to derive the authorization target endpoint.
const InstanceIDEnvVar = "UIP_INSTANCE_ID"

// DefaultInstanceID is used when no instance identifier is configured.
const DefaultInstanceID = "localhost"

// Config is the top-level gateway configuration.
type Config struct {
	// InstanceID identifies this gateway instance. It is resolved once at
	// startup and determines the authorization target endpoint.
	InstanceID string `yaml:"instanceID,omitempty"`

	// Server configures the inline HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Ops configures the operations listener (metrics, health).
	Ops OpsConfig `yaml:"ops"`

	// Authz configures the authorization RPC dispatch.
	Authz AuthzConfig `yaml:"authz"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// ServerConfig configures the inline HTTP listener.
type ServerConfig struct {
	// ListenAddress is the address the gateway listens on.
	ListenAddress string `yaml:"listenAddress"`

	// Upstream is the URL requests are forwarded to once authorized.
	Upstream string `yaml:"upstream"`

	// ReadTimeout is the HTTP server read timeout.
	ReadTimeout time.Duration `yaml:"readTimeout,omitempty"`

	// WriteTimeout is the HTTP server write timeout.
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`

	// IdleTimeout is the HTTP server idle timeout.
	IdleTimeout time.Duration `yaml:"idleTimeout,omitempty"`
}

// OpsConfig configures the operations listener.
type OpsConfig struct {
	// ListenAddress is the address metrics and health are served on.
	ListenAddress string `yaml:"listenAddress"`
}

// AuthzConfig configures the authorization RPC dispatch.
type AuthzConfig struct {
	// Timeout is the per-call authorization RPC timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// AddressOverride replaces the dial address derived from the instance
	// identifier. The cluster name sent in call metadata is unaffected.
	AddressOverride string `yaml:"addressOverride,omitempty"`

	// CircuitBreaker enables the circuit breaker around dispatch.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures the dispatch circuit breaker.
type CircuitBreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool `yaml:"enabled"`

	// MinRequests is the minimum number of calls before the failure ratio
	// is evaluated.
	MinRequests uint32 `yaml:"minRequests,omitempty"`

	// FailureRatio is the failure ratio that trips the breaker.
	FailureRatio float64 `yaml:"failureRatio,omitempty"`

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `yaml:"openTimeout,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty"`

	// Format is the log format (json, console).
	Format string `yaml:"format,omitempty"`
}

// DefaultConfig returns a configuration with default values. The instance
// identifier is resolved from the environment.
func DefaultConfig() *Config {
	return &Config{
		InstanceID: instanceIDFromEnv(),
		Server: ServerConfig{
			ListenAddress: ":8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   120 * time.Second,
		},
		Ops: OpsConfig{
			ListenAddress: ":9090",
		},
		Authz: AuthzConfig{
			Timeout: 5 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      false,
				MinRequests:  10,
				FailureRatio: 0.5,
				OpenTimeout:  30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// instanceIDFromEnv resolves the instance identifier from the environment,
// falling back to the default.
func instanceIDFromEnv() string {
	if id := os.Getenv(InstanceIDEnvVar); id != "" {
		return id
	}
	return DefaultInstanceID
}

// ApplyDefaults fills unset fields with default values.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.InstanceID == "" {
		c.InstanceID = defaults.InstanceID
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = defaults.Server.ListenAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = defaults.Server.IdleTimeout
	}
	if c.Ops.ListenAddress == "" {
		c.Ops.ListenAddress = defaults.Ops.ListenAddress
	}
	if c.Authz.Timeout == 0 {
		c.Authz.Timeout = defaults.Authz.Timeout
	}
	if c.Authz.CircuitBreaker.MinRequests == 0 {
		c.Authz.CircuitBreaker.MinRequests = defaults.Authz.CircuitBreaker.MinRequests
	}
	if c.Authz.CircuitBreaker.FailureRatio == 0 {
		c.Authz.CircuitBreaker.FailureRatio = defaults.Authz.CircuitBreaker.FailureRatio
	}
	if c.Authz.CircuitBreaker.OpenTimeout == 0 {
		c.Authz.CircuitBreaker.OpenTimeout = defaults.Authz.CircuitBreaker.OpenTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Authz.Validate(); err != nil {
		return fmt.Errorf("authz: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listenAddress is required")
	}
	if c.Upstream == "" {
		return errors.New("upstream is required")
	}
	u, err := url.Parse(c.Upstream)
	if err != nil {
		return fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid upstream scheme: %s (must be 'http' or 'https')", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("upstream host is required")
	}
	return nil
}

// Validate validates the authorization configuration.
func (c *AuthzConfig) Validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	cb := c.CircuitBreaker
	if cb.FailureRatio < 0 || cb.FailureRatio > 1 {
		return errors.New("circuitBreaker.failureRatio must be within [0, 1]")
	}
	if cb.OpenTimeout < 0 {
		return errors.New("circuitBreaker.openTimeout must be non-negative")
	}
	return nil
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level: %s", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid format: %s", c.Format)
	}
	return nil
}
