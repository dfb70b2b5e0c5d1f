package repository

// Schema definitions for the Kestrel catalog store.
// Compatible with both SQLite and PostgreSQL.

const schemaRequirements = `
CREATE TABLE IF NOT EXISTS requirements (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    category TEXT NOT NULL,
    authority TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    mandatory INTEGER NOT NULL DEFAULT 0,
    applicable_business_types TEXT NOT NULL DEFAULT '[]',
    conditions TEXT,
    estimated_days INTEGER NOT NULL DEFAULT 0,
    fee TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requirements_position ON requirements(position);
CREATE INDEX IF NOT EXISTS idx_requirements_authority ON requirements(authority);
`

const schemaMappingRules = `
CREATE TABLE IF NOT EXISTS mapping_rules (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    rule_condition TEXT NOT NULL,
    applicable_requirements TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mapping_rules_position ON mapping_rules(position);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRequirements,
		schemaMappingRules,
	}
}
