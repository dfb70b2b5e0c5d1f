package domain

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `mapstructure:"server"`

	// Catalog source and seeding
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Component configurations
	Repository RepositoryConfig `mapstructure:"repository"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	EventBus   EventBusConfig   `mapstructure:"eventbus"`
	Report     ReportConfig     `mapstructure:"report"`

	// Observability
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For,
	// X-Real-IP and True-Client-IP headers are honoured. Requests from any
	// other peer are identified by their socket address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a
// single-address prefix.
func (c ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Catalog sources.
const (
	CatalogSourceEmbedded = "embedded"
	CatalogSourceFile     = "file"
	CatalogSourceDatabase = "database"
)

// CatalogConfig selects where the requirement catalog is loaded from.
type CatalogConfig struct {
	// Source is "embedded", "file" or "database"
	Source string `mapstructure:"source"`

	// Path to a JSON or YAML catalog document when Source is "file"
	Path string `mapstructure:"path"`

	// Seed writes the loaded catalog into the repository at startup.
	// With Source "database" it seeds from the embedded catalog when the
	// repository is empty.
	Seed bool `mapstructure:"seed"`
}

// Report providers.
const (
	ReportProviderNone   = "none"
	ReportProviderGemini = "gemini"
)

// ReportConfig holds narrative report generator settings.
type ReportConfig struct {
	// Provider is "none" or "gemini"
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfig returns a single-node configuration: embedded catalog,
// SQLite, in-memory rate limiting and in-process events.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Catalog: CatalogConfig{
			Source: CatalogSourceEmbedded,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Store:    "memory",
			Requests: 100,
			Window:   time.Minute,
			MaxKeys:  10000,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Report: ReportConfig{
			Provider:    ReportProviderNone,
			Model:       "gemini-1.5-flash",
			Timeout:     20 * time.Second,
			Temperature: 0.3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// ClusterConfig returns a configuration for multi-replica deployments:
// PostgreSQL-backed catalog, Redis counters shared by all replicas and NATS.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Catalog = CatalogConfig{
		Source: CatalogSourceDatabase,
		Seed:   true,
	}
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "kestrel",
		PostgresSSLMode: "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
	cfg.RateLimit.Store = "redis"
	cfg.RateLimit.RedisAddr = "localhost:6379"
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
