// Package config loads Kestrel configuration from defaults, an optional
// YAML file, a .env file and KESTREL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. KESTREL_SERVER_PORT.
const EnvPrefix = "KESTREL"

// Profiles select the base defaults before file and env overrides.
const (
	ProfileStandalone = "standalone"
	ProfileCluster    = "cluster"
)

// Load builds the configuration. An empty path searches for kestrel.yaml
// in the working directory and ./configs; a missing file is not an error
// unless path was given explicitly.
func Load(path string) (*domain.Config, error) {
	loadEnvFile(path)

	v := viper.New()

	base, err := profileDefaults(os.Getenv(EnvPrefix + "_PROFILE"))
	if err != nil {
		return nil, err
	}
	setDefaults(v, base)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("kestrel")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func profileDefaults(profile string) (*domain.Config, error) {
	switch profile {
	case "", ProfileStandalone:
		return domain.DefaultConfig(), nil
	case ProfileCluster:
		return domain.ClusterConfig(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q", profile)
	}
}

// loadEnvFile loads .env from the working directory and, when a config
// path is given, from its directory. Existing variables win.
func loadEnvFile(path string) {
	candidates := []string{".env"}
	if path != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(path), ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *domain.Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)
	v.SetDefault("server.trusted_proxies", cfg.Server.TrustedProxies)

	v.SetDefault("catalog.source", cfg.Catalog.Source)
	v.SetDefault("catalog.path", cfg.Catalog.Path)
	v.SetDefault("catalog.seed", cfg.Catalog.Seed)

	v.SetDefault("repository.driver", cfg.Repository.Driver)
	v.SetDefault("repository.sqlite_path", cfg.Repository.SQLitePath)
	v.SetDefault("repository.postgres_url", cfg.Repository.PostgresURL)
	v.SetDefault("repository.postgres_host", cfg.Repository.PostgresHost)
	v.SetDefault("repository.postgres_port", cfg.Repository.PostgresPort)
	v.SetDefault("repository.postgres_user", cfg.Repository.PostgresUser)
	v.SetDefault("repository.postgres_password", cfg.Repository.PostgresPassword)
	v.SetDefault("repository.postgres_db", cfg.Repository.PostgresDB)
	v.SetDefault("repository.postgres_sslmode", cfg.Repository.PostgresSSLMode)
	v.SetDefault("repository.max_open_conns", cfg.Repository.MaxOpenConns)
	v.SetDefault("repository.max_idle_conns", cfg.Repository.MaxIdleConns)
	v.SetDefault("repository.conn_max_lifetime", cfg.Repository.ConnMaxLifetime)

	v.SetDefault("ratelimit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("ratelimit.store", cfg.RateLimit.Store)
	v.SetDefault("ratelimit.requests", cfg.RateLimit.Requests)
	v.SetDefault("ratelimit.window", cfg.RateLimit.Window)
	v.SetDefault("ratelimit.max_keys", cfg.RateLimit.MaxKeys)
	v.SetDefault("ratelimit.redis_addr", cfg.RateLimit.RedisAddr)
	v.SetDefault("ratelimit.redis_password", cfg.RateLimit.RedisPassword)
	v.SetDefault("ratelimit.redis_db", cfg.RateLimit.RedisDB)

	v.SetDefault("eventbus.type", cfg.EventBus.Type)
	v.SetDefault("eventbus.channel_buffer_size", cfg.EventBus.ChannelBufferSize)
	v.SetDefault("eventbus.nats_url", cfg.EventBus.NATSUrl)
	v.SetDefault("eventbus.nats_token", cfg.EventBus.NATSToken)
	v.SetDefault("eventbus.nats_max_reconnects", cfg.EventBus.NATSMaxReconnects)
	v.SetDefault("eventbus.nats_reconnect_wait", cfg.EventBus.NATSReconnectWait)

	v.SetDefault("report.provider", cfg.Report.Provider)
	v.SetDefault("report.model", cfg.Report.Model)
	v.SetDefault("report.api_key", cfg.Report.APIKey)
	v.SetDefault("report.timeout", cfg.Report.Timeout)
	v.SetDefault("report.temperature", cfg.Report.Temperature)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.service_name", cfg.Tracing.ServiceName)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// overrideFromEnv applies the variables that do not follow the KESTREL_
// key scheme.
func overrideFromEnv(cfg *domain.Config) {
	if cfg.Report.APIKey == "" {
		if val := os.Getenv("GEMINI_API_KEY"); val != "" {
			cfg.Report.APIKey = val
		}
	}
	if os.Getenv(EnvPrefix+"_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}
}

// Validate checks the fields the server cannot start without.
func Validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if _, err := cfg.Server.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}

	switch cfg.Catalog.Source {
	case domain.CatalogSourceEmbedded, domain.CatalogSourceDatabase:
	case domain.CatalogSourceFile:
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required when catalog.source is %q", domain.CatalogSourceFile)
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", cfg.Catalog.Source)
	}

	switch cfg.Repository.Driver {
	case "sqlite":
		if cfg.Repository.SQLitePath == "" {
			return fmt.Errorf("repository.sqlite_path is required")
		}
	case "postgres":
	default:
		return fmt.Errorf("unknown repository.driver %q", cfg.Repository.Driver)
	}

	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Store {
		case "memory":
		case "redis":
			if cfg.RateLimit.RedisAddr == "" {
				return fmt.Errorf("ratelimit.redis_addr is required for the redis store")
			}
		default:
			return fmt.Errorf("unknown ratelimit.store %q", cfg.RateLimit.Store)
		}
		if cfg.RateLimit.Requests <= 0 {
			return fmt.Errorf("ratelimit.requests must be positive")
		}
		if cfg.RateLimit.Window <= 0 {
			return fmt.Errorf("ratelimit.window must be positive")
		}
	}

	switch cfg.EventBus.Type {
	case "", "none", "channel", "nats":
	default:
		return fmt.Errorf("unknown eventbus.type %q", cfg.EventBus.Type)
	}

	switch cfg.Report.Provider {
	case domain.ReportProviderNone:
	case domain.ReportProviderGemini:
		if cfg.Report.APIKey == "" {
			return fmt.Errorf("report.api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown report.provider %q", cfg.Report.Provider)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", cfg.Logging.Level)
	}

	return nil
}
