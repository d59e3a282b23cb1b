package migration

import (
	"context"

	"vennqca/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Runner handles database schema migrations
type Runner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *Runner {
	return &Runner{version: "1.0.0"}
}

// Version returns the migration version
func (r *Runner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *Runner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createOrganizationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create organizations table")
	}
	if err := r.createVariablesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create venn_variables table")
	}
	if err := r.createProxiesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create venn_proxies table")
	}
	if err := r.createMatchesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create venn_matches table")
	}
	if err := r.createIntersectionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create venn_intersections table")
	}
	if err := r.createIntersectionResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create venn_intersection_results table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}
	return nil
}

func (r *Runner) createOrganizationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS organizations (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			url VARCHAR(500) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`)
	return err
}

func (r *Runner) createVariablesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venn_variables (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code VARCHAR(100) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL DEFAULT '',
			color VARCHAR(20) NOT NULL DEFAULT '',
			weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`)
	return err
}

func (r *Runner) createProxiesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venn_proxies (
			id BIGSERIAL PRIMARY KEY,
			variable_id BIGINT NOT NULL REFERENCES venn_variables(id) ON DELETE CASCADE,
			term VARCHAR(255) NOT NULL,
			match_type VARCHAR(20) NOT NULL DEFAULT 'contains',
			weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			case_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (r *Runner) createMatchesTable(ctx context.Context, db *sqlx.DB) error {
	// proxy_id carries no foreign key on purpose: deleting a proxy must
	// leave historical match facts and referencing trees evaluable.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venn_matches (
			id BIGSERIAL PRIMARY KEY,
			organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			proxy_id BIGINT NOT NULL,
			found BOOLEAN NOT NULL DEFAULT FALSE,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			source_urls JSONB,
			fragments JSONB,
			matched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			corrected_value BOOLEAN,
			verified_by VARCHAR(100) NOT NULL DEFAULT '',
			verified_at TIMESTAMPTZ,
			notes TEXT NOT NULL DEFAULT '',
			UNIQUE (organization_id, proxy_id)
		)`)
	return err
}

func (r *Runner) createIntersectionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venn_intersections (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			mode VARCHAR(20) NOT NULL,
			use_proxies BOOLEAN NOT NULL DEFAULT FALSE,
			use_logic_expression BOOLEAN NOT NULL DEFAULT FALSE,
			include_ids JSONB,
			include_proxy_ids JSONB,
			operator VARCHAR(5) NOT NULL DEFAULT '',
			logic_expression JSONB,
			expression_display TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`)
	return err
}

func (r *Runner) createIntersectionResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venn_intersection_results (
			id BIGSERIAL PRIMARY KEY,
			intersection_id BIGINT NOT NULL REFERENCES venn_intersections(id) ON DELETE CASCADE,
			organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			value BOOLEAN NOT NULL DEFAULT FALSE,
			matched_proxy_ids JSONB,
			data_found BOOLEAN NOT NULL DEFAULT FALSE,
			calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			stale BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (intersection_id, organization_id)
		)`)
	return err
}

func (r *Runner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_proxies_variable ON venn_proxies(variable_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_org ON venn_matches(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_proxy ON venn_matches(proxy_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON venn_matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_results_intersection ON venn_intersection_results(intersection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_org ON venn_intersection_results(organization_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
