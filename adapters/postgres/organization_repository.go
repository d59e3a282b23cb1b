package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vennqca/domain/core"
	"vennqca/models"
	"vennqca/ports"

	"github.com/jmoiron/sqlx"
)

// OrganizationRepositoryImpl implements OrganizationRepository for PostgreSQL
type OrganizationRepositoryImpl struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new PostgreSQL organization repository
func NewOrganizationRepository(db *sqlx.DB) ports.OrganizationRepository {
	return &OrganizationRepositoryImpl{db: db}
}

func (r *OrganizationRepositoryImpl) Create(ctx context.Context, o *models.Organization) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, url, description, verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		o.Name, o.URL, o.Description, o.Verified,
	).Scan(&o.ID, &o.CreatedAt)
}

func (r *OrganizationRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, url, description, verified, created_at, updated_at
		FROM organizations WHERE id = $1`, id)
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrOrganizationNotFound
	}
	return o, err
}

func (r *OrganizationRepositoryImpl) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, url, description, verified, created_at, updated_at
		FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrganizationRepositoryImpl) Update(ctx context.Context, o *models.Organization) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET name = $2, url = $3, description = $4, verified = $5, updated_at = NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.URL, o.Description, o.Verified)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrOrganizationNotFound)
}

func (r *OrganizationRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrOrganizationNotFound)
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	var updated sql.NullTime
	err := row.Scan(&o.ID, &o.Name, &o.URL, &o.Description, &o.Verified, &o.CreatedAt, &updated)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		o.UpdatedAt = &updated.Time
	}
	return &o, nil
}
