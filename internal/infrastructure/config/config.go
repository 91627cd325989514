package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all console configuration
type Config struct {
	App       AppConfig
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Log       LogConfig
	List      ListConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// APIConfig holds the backend connection settings
type APIConfig struct {
	BaseURL  string
	BasePath string
	Timeout  time.Duration
	Headers  map[string]string
}

// SessionConfig selects where the login session is persisted
type SessionConfig struct {
	Backend   string // file, memory, redis, sql
	Path      string // file backend
	KeyPrefix string // redis and sql backends
	Driver    string // sql backend: sqlite, postgres
	DSN       string // sql backend
	TTL       time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ListConfig tunes the list screens
type ListConfig struct {
	PageSize     int
	DemoFallback bool              // show sample records when a load fails
	Fallback     map[string]string // per-screen override: stale or sample
	SampleSeed   uint64
}

// NotifyConfig tunes notifications
type NotifyConfig struct {
	TTL time.Duration
}

// MetricsConfig controls client metrics
type MetricsConfig struct {
	Enabled bool // log request metrics when a command finishes
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	Enabled       bool
	Endpoint      string // OTLP gRPC collector, host:port
	Insecure      bool
	SamplingRatio float64
	Logs          bool // bridge log entries to the collector
}

// Load reads console.toml from the working directory or ~/.erp, then
// ERP_CONSOLE_* environment variables. file, when set, replaces the search.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("console")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.erp")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("telemetry.sampling_ratio", 1.0)

	v.SetEnvPrefix("ERP_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			BaseURL:  v.GetString("api.base_url"),
			BasePath: v.GetString("api.base_path"),
			Timeout:  v.GetDuration("api.timeout"),
			Headers:  v.GetStringMapString("api.headers"),
		},
		Session: SessionConfig{
			Backend:   v.GetString("session.backend"),
			Path:      v.GetString("session.path"),
			KeyPrefix: v.GetString("session.key_prefix"),
			Driver:    v.GetString("session.driver"),
			DSN:       v.GetString("session.dsn"),
			TTL:       v.GetDuration("session.ttl"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		List: ListConfig{
			PageSize:     v.GetInt("list.page_size"),
			DemoFallback: v.GetBool("list.demo_fallback"),
			Fallback:     v.GetStringMapString("list.fallback"),
			SampleSeed:   v.GetUint64("list.sample_seed"),
		},
		Notify: NotifyConfig{
			TTL: v.GetDuration("notify.ttl"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:       v.GetBool("telemetry.enabled"),
			Endpoint:      v.GetString("telemetry.endpoint"),
			Insecure:      v.GetBool("telemetry.insecure"),
			SamplingRatio: v.GetFloat64("telemetry.sampling_ratio"),
			Logs:          v.GetBool("telemetry.logs"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-console"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "file"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "erp:console:session:"
	}
	if cfg.Session.Driver == "" {
		cfg.Session.Driver = "sqlite"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.List.PageSize == 0 {
		cfg.List.PageSize = 10
	}
	if cfg.Notify.TTL == 0 {
		cfg.Notify.TTL = 3 * time.Second
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.App.Env == "production" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use https in production")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout cannot be negative")
	}

	switch c.Session.Backend {
	case "file", "memory", "redis":
	case "sql":
		if c.Session.DSN == "" {
			return fmt.Errorf("session.dsn is required for the sql backend")
		}
		if c.Session.Driver != "sqlite" && c.Session.Driver != "postgres" {
			return fmt.Errorf("session.driver must be sqlite or postgres, got %q", c.Session.Driver)
		}
	default:
		return fmt.Errorf("session.backend must be one of file, memory, redis, sql, got %q", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl cannot be negative")
	}

	if c.List.PageSize < 1 || c.List.PageSize > 100 {
		return fmt.Errorf("list.page_size must be between 1 and 100, got %d", c.List.PageSize)
	}
	for screen, policy := range c.List.Fallback {
		if policy != "stale" && policy != "sample" {
			return fmt.Errorf("list.fallback.%s must be stale or sample, got %q", screen, policy)
		}
	}
	if c.Notify.TTL < 0 {
		return fmt.Errorf("notify.ttl cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}

	return nil
}
