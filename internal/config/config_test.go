package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests the default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultInstanceID, cfg.InstanceID)
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, ":9090", cfg.Ops.ListenAddress)
	assert.Equal(t, 5*time.Second, cfg.Authz.Timeout)
	assert.False(t, cfg.Authz.CircuitBreaker.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestDefaultConfig_InstanceIDFromEnv tests that the instance identifier is
// resolved from the environment.
func TestDefaultConfig_InstanceIDFromEnv(t *testing.T) {
	t.Setenv(InstanceIDEnvVar, "gw-east-1")

	cfg := DefaultConfig()

	assert.Equal(t, "gw-east-1", cfg.InstanceID)
}

// TestConfig_ApplyDefaults tests that unset fields are filled in while
// explicit values are preserved.
func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddress: ":3000",
			Upstream:      "http://backend:8080",
		},
	}

	cfg.ApplyDefaults()

	assert.Equal(t, ":3000", cfg.Server.ListenAddress)
	assert.Equal(t, "http://backend:8080", cfg.Server.Upstream)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Authz.Timeout)
	assert.Equal(t, uint32(10), cfg.Authz.CircuitBreaker.MinRequests)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Server.Upstream = "http://backend:8080"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing upstream",
			mutate:  func(c *Config) { c.Server.Upstream = "" },
			wantErr: "upstream is required",
		},
		{
			name:    "bad upstream scheme",
			mutate:  func(c *Config) { c.Server.Upstream = "ftp://backend" },
			wantErr: "invalid upstream scheme",
		},
		{
			name:    "upstream without host",
			mutate:  func(c *Config) { c.Server.Upstream = "http://" },
			wantErr: "upstream host is required",
		},
		{
			name:    "missing listen address",
			mutate:  func(c *Config) { c.Server.ListenAddress = "" },
			wantErr: "listenAddress is required",
		},
		{
			name:    "negative authz timeout",
			mutate:  func(c *Config) { c.Authz.Timeout = -time.Second },
			wantErr: "timeout must be non-negative",
		},
		{
			name:    "failure ratio out of range",
			mutate:  func(c *Config) { c.Authz.CircuitBreaker.FailureRatio = 1.5 },
			wantErr: "failureRatio",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "invalid level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "invalid format",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
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

// TestConfig_Validate_Nil tests that a nil config is rejected.
func TestConfig_Validate_Nil(t *testing.T) {
	t.Parallel()

	var cfg *Config

	err := cfg.Validate()

	require.Error(t, err)
}
