package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// clearEnv blanks the variables Load reads outside the KESTREL_<key> scheme.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KESTREL_PROFILE", "")
	t.Setenv("KESTREL_DEBUG", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	want := domain.DefaultConfig()
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Catalog, cfg.Catalog)
	assert.Equal(t, want.RateLimit, cfg.RateLimit)
	assert.Equal(t, want.EventBus, cfg.EventBus)
	assert.Equal(t, want.Report.Provider, cfg.Report.Provider)
	assert.InDelta(t, want.Report.Temperature, cfg.Report.Temperature, 1e-6)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "kestrel.yaml", `
server:
  port: 9090
  read_timeout: 5s
  trusted_proxies:
    - 10.0.0.0/8
    - 192.0.2.1
catalog:
  source: file
  path: ./catalog.yaml
ratelimit:
  requests: 20
  window: 30s
eventbus:
  type: none
report:
  provider: gemini
  api_key: from-file
  temperature: 0.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, domain.CatalogSourceFile, cfg.Catalog.Source)
	assert.Equal(t, "./catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "none", cfg.EventBus.Type)
	assert.Equal(t, "from-file", cfg.Report.APIKey)
	assert.InDelta(t, 0.5, cfg.Report.Temperature, 1e-6)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KESTREL_SERVER_PORT", "7070")
	t.Setenv("KESTREL_RATELIMIT_STORE", "redis")
	t.Setenv("KESTREL_RATELIMIT_REDIS_ADDR", "redis:6379")
	t.Setenv("KESTREL_REPORT_TIMEOUT", "3s")
	t.Setenv("KESTREL_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.RateLimit.Store)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.Report.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "kestrel.yaml", "server:\n  port: 9090\n")
	t.Setenv("KESTREL_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestGeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("KESTREL_REPORT_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Report.APIKey)

	t.Setenv("KESTREL_REPORT_API_KEY", "explicit")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Report.APIKey)
}

func TestDotEnvNextToConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "kestrel.yaml", "logging:\n  format: text\n")
	writeFile(t, dir, ".env", "KESTREL_TEST_DOTENV_MARKER=loaded\n")
	t.Cleanup(func() { os.Unsetenv("KESTREL_TEST_DOTENV_MARKER") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "loaded", os.Getenv("KESTREL_TEST_DOTENV_MARKER"))
}

func TestClusterProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("KESTREL_PROFILE", ProfileCluster)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.CatalogSourceDatabase, cfg.Catalog.Source)
	assert.True(t, cfg.Catalog.Seed)
	assert.Equal(t, "postgres", cfg.Repository.Driver)
	assert.Equal(t, "redis", cfg.RateLimit.Store)
	assert.Equal(t, "nats", cfg.EventBus.Type)
	assert.True(t, cfg.Tracing.Enabled)

	t.Setenv("KESTREL_PROFILE", "galactic")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"port zero", func(c *domain.Config) { c.Server.Port = 0 }},
		{"port too large", func(c *domain.Config) { c.Server.Port = 70000 }},
		{"body limit", func(c *domain.Config) { c.Server.MaxBodyBytes = 0 }},
		{"bad trusted proxy", func(c *domain.Config) { c.Server.TrustedProxies = []string{"10.0.0.0/33"} }},
		{"trusted proxy hostname", func(c *domain.Config) { c.Server.TrustedProxies = []string{"proxy.internal"} }},
		{"unknown catalog source", func(c *domain.Config) { c.Catalog.Source = "s3" }},
		{"file source without path", func(c *domain.Config) { c.Catalog.Source = domain.CatalogSourceFile }},
		{"unknown driver", func(c *domain.Config) { c.Repository.Driver = "mysql" }},
		{"sqlite without path", func(c *domain.Config) { c.Repository.SQLitePath = "" }},
		{"unknown store", func(c *domain.Config) { c.RateLimit.Store = "memcached" }},
		{"redis without addr", func(c *domain.Config) { c.RateLimit.Store = "redis" }},
		{"zero requests", func(c *domain.Config) { c.RateLimit.Requests = 0 }},
		{"zero window", func(c *domain.Config) { c.RateLimit.Window = 0 }},
		{"unknown bus", func(c *domain.Config) { c.EventBus.Type = "kafka" }},
		{"unknown provider", func(c *domain.Config) { c.Report.Provider = "openai" }},
		{"gemini without key", func(c *domain.Config) { c.Report.Provider = domain.ReportProviderGemini }},
		{"unknown level", func(c *domain.Config) { c.Logging.Level = "verbose" }},
	}

	require.NoError(t, Validate(domain.DefaultConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	t.Run("disabled limiter skips its checks", func(t *testing.T) {
		cfg := domain.DefaultConfig()
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.Requests = 0
		assert.NoError(t, Validate(cfg))
	})
}
