package catalog

import (
	"context"
	"fmt"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Seed replaces the catalog stored in repo with cat, keeping catalog order.
// Rows whose ids are not in cat are removed.
func Seed(ctx context.Context, repo domain.CatalogRepository, cat *Catalog) error {
	if err := repo.ReplaceCatalog(ctx, cat.records, cat.rules); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

// FromRepository builds a catalog from the rows stored in repo.
func FromRepository(ctx context.Context, repo domain.CatalogRepository) (*Catalog, error) {
	recs, err := repo.ListRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	rules, err := repo.ListMappingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mapping rules: %w", err)
	}

	records := make([]domain.RequirementRecord, len(recs))
	for i, r := range recs {
		records[i] = *r
	}
	mapping := make([]domain.MappingRule, len(rules))
	for i, r := range rules {
		mapping[i] = *r
	}
	return New(records, mapping)
}

// Open resolves the catalog selected by cfg. repo may be nil unless the
// source is database or cfg.Seed is set.
//
// With the database source an empty repository is seeded from the embedded
// catalog when cfg.Seed is set; otherwise an empty repository is an error.
// With the embedded or file source, cfg.Seed writes the loaded catalog to
// repo.
func Open(ctx context.Context, cfg domain.CatalogConfig, repo domain.CatalogRepository) (*Catalog, error) {
	switch cfg.Source {
	case "", domain.CatalogSourceEmbedded, domain.CatalogSourceFile:
		var cat *Catalog
		var err error
		if cfg.Source == domain.CatalogSourceFile {
			cat, err = LoadFile(cfg.Path)
		} else {
			cat, err = Default()
		}
		if err != nil {
			return nil, err
		}
		if cfg.Seed {
			if repo == nil {
				return nil, fmt.Errorf("catalog seeding requires a repository")
			}
			if err := Seed(ctx, repo, cat); err != nil {
				return nil, err
			}
		}
		return cat, nil

	case domain.CatalogSourceDatabase:
		if repo == nil {
			return nil, fmt.Errorf("catalog source %q requires a repository", cfg.Source)
		}
		requirements, _, err := repo.Counts(ctx)
		if err != nil {
			return nil, fmt.Errorf("count stored requirements: %w", err)
		}
		if requirements == 0 {
			if !cfg.Seed {
				return nil, fmt.Errorf("catalog repository is empty and seeding is disabled")
			}
			def, err := Default()
			if err != nil {
				return nil, err
			}
			if err := Seed(ctx, repo, def); err != nil {
				return nil, err
			}
		}
		return FromRepository(ctx, repo)

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
