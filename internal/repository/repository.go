// Package repository provides catalog persistence over database/sql.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
)

// SQLRepository implements domain.CatalogRepository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New creates a new repository based on configuration and runs migrations.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := newSQLRepository(db, cfg.Driver)

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func newSQLRepository(db *sql.DB, driver string) *SQLRepository {
	return &SQLRepository{
		db:     db,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveRequirement inserts or replaces a requirement record at position.
func (r *SQLRepository) SaveRequirement(ctx context.Context, position int, req *domain.RequirementRecord) error {
	return r.saveRequirement(ctx, r.db, position, req)
}

func (r *SQLRepository) saveRequirement(ctx context.Context, exec execer, position int, req *domain.RequirementRecord) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("%w: requirement id is required", ErrInvalidInput)
	}

	types := req.ApplicableBusinessTypes
	if types == nil {
		types = []domain.BusinessType{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("encode business types: %w", err)
	}

	var conditions sql.NullString
	if req.Conditions != nil {
		raw, err := json.Marshal(req.Conditions)
		if err != nil {
			return fmt.Errorf("encode conditions: %w", err)
		}
		conditions = sql.NullString{String: string(raw), Valid: true}
	}

	mandatory := 0
	if req.Mandatory {
		mandatory = 1
	}

	query := `
		INSERT INTO requirements (
			id, position, category, authority, title, description, mandatory,
			applicable_business_types, conditions, estimated_days, fee, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			category = excluded.category,
			authority = excluded.authority,
			title = excluded.title,
			description = excluded.description,
			mandatory = excluded.mandatory,
			applicable_business_types = excluded.applicable_business_types,
			conditions = excluded.conditions,
			estimated_days = excluded.estimated_days,
			fee = excluded.fee,
			updated_at = excluded.updated_at
	`

	_, err = exec.ExecContext(ctx, r.rebind(query),
		req.ID, position, string(req.Category.Normalize()), req.Authority,
		req.Title, req.Description, mandatory,
		string(typesJSON), conditions, req.EstimatedDays, req.Fee,
		r.now(),
	)
	return err
}

// ListRequirements returns every stored requirement ordered by position.
func (r *SQLRepository) ListRequirements(ctx context.Context) ([]*domain.RequirementRecord, error) {
	query := `
		SELECT id, category, authority, title, description, mandatory,
			   applicable_business_types, conditions, estimated_days, fee
		FROM requirements
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.RequirementRecord
	for rows.Next() {
		var rec domain.RequirementRecord
		var category, typesJSON string
		var conditions sql.NullString
		var mandatory int

		if err := rows.Scan(
			&rec.ID, &category, &rec.Authority, &rec.Title, &rec.Description, &mandatory,
			&typesJSON, &conditions, &rec.EstimatedDays, &rec.Fee,
		); err != nil {
			return nil, err
		}

		rec.Category = domain.Category(category)
		rec.Mandatory = mandatory == 1
		if err := json.Unmarshal([]byte(typesJSON), &rec.ApplicableBusinessTypes); err != nil {
			return nil, fmt.Errorf("failed to parse business types for %s: %w", rec.ID, err)
		}
		if len(rec.ApplicableBusinessTypes) == 0 {
			rec.ApplicableBusinessTypes = nil
		}
		if conditions.Valid && conditions.String != "" {
			var cond domain.Condition
			if err := json.Unmarshal([]byte(conditions.String), &cond); err != nil {
				return nil, fmt.Errorf("failed to parse conditions for %s: %w", rec.ID, err)
			}
			rec.Conditions = &cond
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveMappingRule inserts or replaces a mapping rule at position.
func (r *SQLRepository) SaveMappingRule(ctx context.Context, position int, rule *domain.MappingRule) error {
	return r.saveMappingRule(ctx, r.db, position, rule)
}

func (r *SQLRepository) saveMappingRule(ctx context.Context, exec execer, position int, rule *domain.MappingRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	condition, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("encode condition: %w", err)
	}
	ids := rule.ApplicableRequirements
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode requirement ids: %w", err)
	}

	query := `
		INSERT INTO mapping_rules (
			id, position, description, rule_condition, applicable_requirements, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			description = excluded.description,
			rule_condition = excluded.rule_condition,
			applicable_requirements = excluded.applicable_requirements,
			updated_at = excluded.updated_at
	`

	_, err = exec.ExecContext(ctx, r.rebind(query),
		rule.ID, position, rule.Description, string(condition), string(idsJSON), r.now(),
	)
	return err
}

// ReplaceCatalog deletes every stored requirement and rule and writes the
// given ones in a single transaction. Positions follow slice order.
func (r *SQLRepository) ReplaceCatalog(ctx context.Context, records []*domain.RequirementRecord, rules []*domain.MappingRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"mapping_rules", "requirements"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, rec := range records {
		if err := r.saveRequirement(ctx, tx, i, rec); err != nil {
			return fmt.Errorf("save requirement %d: %w", i, err)
		}
	}
	for i, rule := range rules {
		if err := r.saveMappingRule(ctx, tx, i, rule); err != nil {
			return fmt.Errorf("save rule %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListMappingRules returns every stored rule ordered by position.
func (r *SQLRepository) ListMappingRules(ctx context.Context) ([]*domain.MappingRule, error) {
	query := `
		SELECT id, description, rule_condition, applicable_requirements
		FROM mapping_rules
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.MappingRule
	for rows.Next() {
		var rule domain.MappingRule
		var condition, idsJSON string

		if err := rows.Scan(&rule.ID, &rule.Description, &condition, &idsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(condition), &rule.Condition); err != nil {
			return nil, fmt.Errorf("failed to parse condition for %s: %w", rule.ID, err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &rule.ApplicableRequirements); err != nil {
			return nil, fmt.Errorf("failed to parse requirement ids for %s: %w", rule.ID, err)
		}
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Counts returns the number of stored requirements and mapping rules.
func (r *SQLRepository) Counts(ctx context.Context) (int, int, error) {
	var requirements, rules int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requirements`).Scan(&requirements); err != nil {
		return 0, 0, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mapping_rules`).Scan(&rules); err != nil {
		return 0, 0, err
	}
	return requirements, rules, nil
}

// DeleteRequirement removes a requirement by id.
func (r *SQLRepository) DeleteRequirement(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM requirements WHERE id = ?`), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: requirement %s", ErrNotFound, id)
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, strconv.Itoa(n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
