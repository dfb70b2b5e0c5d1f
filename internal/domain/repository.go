// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// CatalogRepository persists the requirement catalog.
// List methods return records in their stored catalog order.
type CatalogRepository interface {
	// Requirement records
	SaveRequirement(ctx context.Context, position int, req *RequirementRecord) error
	ListRequirements(ctx context.Context) ([]*RequirementRecord, error)

	// Mapping rules
	SaveMappingRule(ctx context.Context, position int, rule *MappingRule) error
	ListMappingRules(ctx context.Context) ([]*MappingRule, error)

	// ReplaceCatalog atomically swaps the stored catalog for the given
	// records and rules, removing rows that are not in them.
	ReplaceCatalog(ctx context.Context, records []*RequirementRecord, rules []*MappingRule) error

	// Counts returns the number of stored requirements and rules.
	Counts(ctx context.Context) (requirements int, rules int, err error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgreSQL specific
	PostgresURL      string `mapstructure:"postgres_url"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}
