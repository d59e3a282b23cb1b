package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"vennqca/domain/core"
	"vennqca/models"
	"vennqca/ports"

	"github.com/jmoiron/sqlx"
)

// IntersectionRepositoryImpl implements IntersectionRepository for PostgreSQL
type IntersectionRepositoryImpl struct {
	db *sqlx.DB
}

// NewIntersectionRepository creates a new PostgreSQL intersection repository
func NewIntersectionRepository(db *sqlx.DB) ports.IntersectionRepository {
	return &IntersectionRepositoryImpl{db: db}
}

const intersectionColumns = `id, name, description, mode, use_proxies, use_logic_expression,
	include_ids, include_proxy_ids, operator, logic_expression, expression_display,
	is_active, created_at, updated_at`

func (r *IntersectionRepositoryImpl) Create(ctx context.Context, in *models.Intersection) error {
	varIDs, err := jsonbIDs(in.IncludeVariableIDs)
	if err != nil {
		return err
	}
	proxyIDs, err := jsonbIDs(in.IncludeProxyIDs)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO venn_intersections
			(name, description, mode, use_proxies, use_logic_expression,
			 include_ids, include_proxy_ids, operator, logic_expression,
			 expression_display, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		in.Name, in.Description, in.Mode, in.UseProxies, in.UseLogicExpression,
		varIDs, proxyIDs, in.Operator, nullableJSONB(in.LogicExpression),
		in.ExpressionDisplay, in.IsActive,
	).Scan(&in.ID, &in.CreatedAt)
}

func (r *IntersectionRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Intersection, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+intersectionColumns+` FROM venn_intersections WHERE id = $1`, id)
	in, err := scanIntersection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrIntersectionNotFound
	}
	return in, err
}

func (r *IntersectionRepositoryImpl) List(ctx context.Context) ([]*models.Intersection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+intersectionColumns+` FROM venn_intersections
		WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Intersection
	for rows.Next() {
		in, err := scanIntersection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *IntersectionRepositoryImpl) Update(ctx context.Context, in *models.Intersection) error {
	varIDs, err := jsonbIDs(in.IncludeVariableIDs)
	if err != nil {
		return err
	}
	proxyIDs, err := jsonbIDs(in.IncludeProxyIDs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE venn_intersections
		SET name = $2, description = $3, mode = $4, use_proxies = $5,
		    use_logic_expression = $6, include_ids = $7, include_proxy_ids = $8,
		    operator = $9, logic_expression = $10, expression_display = $11,
		    is_active = $12, updated_at = NOW()
		WHERE id = $1`,
		in.ID, in.Name, in.Description, in.Mode, in.UseProxies,
		in.UseLogicExpression, varIDs, proxyIDs, in.Operator,
		nullableJSONB(in.LogicExpression), in.ExpressionDisplay, in.IsActive)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrIntersectionNotFound)
}

func (r *IntersectionRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venn_intersections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrIntersectionNotFound)
}

func (r *IntersectionRepositoryImpl) SaveResult(ctx context.Context, result *models.IntersectionResult) error {
	proxyIDs, err := jsonbIDs(result.MatchedProxyIDs)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO venn_intersection_results
			(intersection_id, organization_id, value, matched_proxy_ids, data_found, stale)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (intersection_id, organization_id) DO UPDATE
		SET value = EXCLUDED.value,
		    matched_proxy_ids = EXCLUDED.matched_proxy_ids,
		    data_found = EXCLUDED.data_found,
		    calculated_at = NOW(),
		    stale = FALSE
		RETURNING id, calculated_at`,
		result.IntersectionID, result.OrganizationID, result.Value, proxyIDs, result.DataFound,
	).Scan(&result.ID, &result.CalculatedAt)
}

func (r *IntersectionRepositoryImpl) ListResults(ctx context.Context, intersectionID int64) ([]*models.IntersectionResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, intersection_id, organization_id, value, matched_proxy_ids,
		       data_found, calculated_at, stale
		FROM venn_intersection_results
		WHERE intersection_id = $1 ORDER BY organization_id`, intersectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.IntersectionResult
	for rows.Next() {
		var res models.IntersectionResult
		var proxyIDs []byte
		err := rows.Scan(&res.ID, &res.IntersectionID, &res.OrganizationID, &res.Value,
			&proxyIDs, &res.DataFound, &res.CalculatedAt, &res.Stale)
		if err != nil {
			return nil, err
		}
		if err := jsonbDecodeIDs(proxyIDs, &res.MatchedProxyIDs); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (r *IntersectionRepositoryImpl) MarkResultsStale(ctx context.Context, intersectionID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE venn_intersection_results SET stale = TRUE
		WHERE intersection_id = $1`, intersectionID)
	return err
}

func scanIntersection(row rowScanner) (*models.Intersection, error) {
	var in models.Intersection
	var varIDs, proxyIDs, logic []byte
	var updated sql.NullTime
	err := row.Scan(&in.ID, &in.Name, &in.Description, &in.Mode,
		&in.UseProxies, &in.UseLogicExpression, &varIDs, &proxyIDs,
		&in.Operator, &logic, &in.ExpressionDisplay, &in.IsActive,
		&in.CreatedAt, &updated)
	if err != nil {
		return nil, err
	}
	if err := jsonbDecodeIDs(varIDs, &in.IncludeVariableIDs); err != nil {
		return nil, err
	}
	if err := jsonbDecodeIDs(proxyIDs, &in.IncludeProxyIDs); err != nil {
		return nil, err
	}
	in.LogicExpression = logic
	if updated.Valid {
		in.UpdatedAt = &updated.Time
	}
	return &in, nil
}

func jsonbIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		return nil, nil
	}
	return json.Marshal(ids)
}

func jsonbDecodeIDs(data []byte, dest *[]int64) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func nullableJSONB(doc []byte) interface{} {
	if len(doc) == 0 {
		return nil
	}
	return doc
}
