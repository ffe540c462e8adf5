package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server:
  port: 9090
  read_timeout: 5s
logging:
  level: debug
upstreams:
  crm:
    url: http://crm:8081
    prefix: /api/customers
  scheduling:
    url: http://scheduling:8082
    prefix: /api/appointments
`

func TestLoadFromPath(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadFromPath(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "s3cret", cfg.Auth.Secret, "secret comes from the environment")
	require.Len(t, cfg.Upstreams, 2)
	assert.Equal(t, "/api/customers", cfg.Upstreams["crm"].Prefix)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, `
upstreams:
  users:
    url: http://users:8084
    prefix: /api/users
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.Equal(t, 200, cfg.Audit.MaxEntries)
	assert.NotEmpty(t, cfg.Auth.SkipPaths)
}

func TestLoadRejectsMissingUpstreams(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `server: {port: 8080}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream")
}

func TestLoadRejectsUpstreamWithoutURL(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
upstreams:
  crm:
    prefix: /api/customers
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestLoadRejectsPrefixOutsideAPI(t *testing.T) {
	// Every proxied route lives under the /api subrouter; a prefix outside
	// it would never match.
	_, err := LoadFromPath(writeConfig(t, `
upstreams:
  crm:
    url: http://crm:8081
    prefix: /customers
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with /api/")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultUpstreams(t *testing.T) {
	ups := DefaultUpstreams()
	for _, name := range []string{"crm", "scheduling", "catalog", "users"} {
		up, ok := ups[name]
		require.True(t, ok, "missing default upstream %s", name)
		assert.NotEmpty(t, up.URL)
		assert.NotEmpty(t, up.Prefix)
	}
}
