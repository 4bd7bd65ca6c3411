package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
instanceID: gw-1
server:
  listenAddress: ":8081"
  upstream: "http://backend:9000"
authz:
  timeout: 5s
log:
  level: debug
`

// TestLoad_ValidFile tests loading configuration from a file.
func TestLoad_ValidFile(t *testing.T) {
	t.Parallel()

	// Arrange
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "gw-1", cfg.InstanceID)
	assert.Equal(t, ":8081", cfg.Server.ListenAddress)
	assert.Equal(t, "http://backend:9000", cfg.Server.Upstream)
	assert.Equal(t, 5*time.Second, cfg.Authz.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults applied for unset fields.
	assert.Equal(t, ":9090", cfg.Ops.ListenAddress)
}

// TestLoad_MissingFile tests that a missing file is reported.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoadFromReader_InvalidYAML tests that malformed YAML is rejected.
func TestLoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("server: [not a map"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

// TestLoadFromReader_InvalidConfig tests that validation runs after parsing.
func TestLoadFromReader_InvalidConfig(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  listenAddress: ":8080"
  upstream: "ftp://nope"
`

	_, err := LoadFromReader(strings.NewReader(yaml))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// TestLoadFromReader_EnvSubstitution tests ${VAR} and ${VAR:-default}
// substitution.
func TestLoadFromReader_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_AUTHGW_UPSTREAM", "http://real-backend:8000")

	yaml := `
instanceID: "${TEST_AUTHGW_INSTANCE:-fallback-id}"
server:
  listenAddress: ":8080"
  upstream: "${TEST_AUTHGW_UPSTREAM}"
`

	cfg, err := LoadFromReader(strings.NewReader(yaml))

	require.NoError(t, err)
	assert.Equal(t, "fallback-id", cfg.InstanceID)
	assert.Equal(t, "http://real-backend:8000", cfg.Server.Upstream)
}

// TestSubstituteEnvVars_EscapedDollar tests that $$ escapes substitution.
func TestSubstituteEnvVars_EscapedDollar(t *testing.T) {
	t.Parallel()

	result := substituteEnvVars("value: $${NOT_A_VAR}")

	assert.Equal(t, "value: ${NOT_A_VAR}", result)
}
