package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Run from an empty directory so no console.toml is picked up
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	t.Run("loads default values when nothing is configured", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "erp-console", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
		assert.Equal(t, "/api", cfg.API.BasePath)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, "file", cfg.Session.Backend)
		assert.Equal(t, 10, cfg.List.PageSize)
		assert.False(t, cfg.List.DemoFallback)
		assert.Equal(t, 3*time.Second, cfg.Notify.TTL)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, "stderr", cfg.Log.Output)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with ERP_CONSOLE prefix", func(t *testing.T) {
		t.Setenv("ERP_CONSOLE_API_BASE_URL", "https://erp.example.com")
		t.Setenv("ERP_CONSOLE_API_TIMEOUT", "5s")
		t.Setenv("ERP_CONSOLE_SESSION_BACKEND", "redis")
		t.Setenv("ERP_CONSOLE_REDIS_PORT", "6380")
		t.Setenv("ERP_CONSOLE_LIST_PAGE_SIZE", "25")
		t.Setenv("ERP_CONSOLE_LIST_DEMO_FALLBACK", "true")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "https://erp.example.com", cfg.API.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)
		assert.Equal(t, "redis", cfg.Session.Backend)
		assert.Equal(t, 6380, cfg.Redis.Port)
		assert.Equal(t, 25, cfg.List.PageSize)
		assert.True(t, cfg.List.DemoFallback)
	})
}

func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "console.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "https://erp.internal"
timeout = "10s"

[api.headers]
X-Tenant-ID = "acme"

[session]
backend = "sql"
driver = "postgres"
dsn = "postgres://erp@localhost/erp"

[list]
page_size = 20

[list.fallback]
products = "sample"

[metrics]
enabled = true

[telemetry]
enabled = true
endpoint = "otel-collector:4317"
sampling_ratio = 0.5
logs = true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://erp.internal", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "acme", cfg.API.Headers["x-tenant-id"], "viper lower-cases keys")
	assert.Equal(t, "sql", cfg.Session.Backend)
	assert.Equal(t, "postgres", cfg.Session.Driver)
	assert.Equal(t, 20, cfg.List.PageSize)
	assert.Equal(t, map[string]string{"products": "sample"}, cfg.List.Fallback)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, TelemetryConfig{
		Enabled:       true,
		Endpoint:      "otel-collector:4317",
		SamplingRatio: 0.5,
		Logs:          true,
	}, cfg.Telemetry)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "localhost:8080" }, "api.base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://erp" }, "scheme"},
		{"http in production", func(c *Config) { c.App.Env = "production" }, "https in production"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "etcd" }, "session.backend"},
		{"sql without dsn", func(c *Config) { c.Session.Backend = "sql" }, "session.dsn"},
		{"sql with bad driver", func(c *Config) {
			c.Session.Backend = "sql"
			c.Session.DSN = "x"
			c.Session.Driver = "mysql"
		}, "session.driver"},
		{"page size too big", func(c *Config) { c.List.PageSize = 500 }, "list.page_size"},
		{"bad fallback", func(c *Config) { c.List.Fallback = map[string]string{"users": "magic"} }, "list.fallback.users"},
		{"negative ttl", func(c *Config) { c.Notify.TTL = -time.Second }, "notify.ttl"},
		{"sampling ratio above one", func(c *Config) { c.Telemetry.SamplingRatio = 2 }, "telemetry.sampling_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, valid().validate())
}
