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

// VariableRepositoryImpl implements VariableRepository for PostgreSQL
type VariableRepositoryImpl struct {
	db *sqlx.DB
}

// NewVariableRepository creates a new PostgreSQL variable repository
func NewVariableRepository(db *sqlx.DB) ports.VariableRepository {
	return &VariableRepositoryImpl{db: db}
}

func (r *VariableRepositoryImpl) Create(ctx context.Context, v *models.Variable) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO venn_variables (name, code, description, category, color, weight)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		v.Name, v.Code, v.Description, v.Category, v.Color, v.Weight,
	).Scan(&v.ID, &v.CreatedAt)
}

func (r *VariableRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Variable, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, description, category, color, weight, created_at, updated_at
		FROM venn_variables WHERE id = $1`, id)
	v, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrVariableNotFound
	}
	return v, err
}

func (r *VariableRepositoryImpl) List(ctx context.Context) ([]*models.Variable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, description, category, color, weight, created_at, updated_at
		FROM venn_variables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VariableRepositoryImpl) Update(ctx context.Context, v *models.Variable) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE venn_variables
		SET name = $2, code = $3, description = $4, category = $5, color = $6, weight = $7, updated_at = NOW()
		WHERE id = $1`,
		v.ID, v.Name, v.Code, v.Description, v.Category, v.Color, v.Weight)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrVariableNotFound)
}

func (r *VariableRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venn_variables WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrVariableNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVariable(row rowScanner) (*models.Variable, error) {
	var v models.Variable
	var updated sql.NullTime
	err := row.Scan(&v.ID, &v.Name, &v.Code, &v.Description, &v.Category, &v.Color, &v.Weight, &v.CreatedAt, &updated)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		v.UpdatedAt = &updated.Time
	}
	return &v, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
