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

// ProxyRepositoryImpl implements ProxyRepository for PostgreSQL
type ProxyRepositoryImpl struct {
	db *sqlx.DB
}

// NewProxyRepository creates a new PostgreSQL proxy repository
func NewProxyRepository(db *sqlx.DB) ports.ProxyRepository {
	return &ProxyRepositoryImpl{db: db}
}

const proxyColumns = `id, variable_id, term, match_type, weight, case_sensitive, created_at`

func (r *ProxyRepositoryImpl) Create(ctx context.Context, p *models.Proxy) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO venn_proxies (variable_id, term, match_type, weight, case_sensitive)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.VariableID, p.Term, p.MatchType, p.Weight, p.CaseSensitive,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *ProxyRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.Proxy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+proxyColumns+` FROM venn_proxies WHERE id = $1`, id)
	p, err := scanProxy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrProxyNotFound
	}
	return p, err
}

func (r *ProxyRepositoryImpl) ListByVariable(ctx context.Context, variableID int64) ([]*models.Proxy, error) {
	return r.query(ctx, `SELECT `+proxyColumns+` FROM venn_proxies WHERE variable_id = $1 ORDER BY id`, variableID)
}

func (r *ProxyRepositoryImpl) List(ctx context.Context) ([]*models.Proxy, error) {
	return r.query(ctx, `SELECT `+proxyColumns+` FROM venn_proxies ORDER BY id`)
}

// FindByText matches the fragment against proxy terms by case-insensitive
// substring in either direction, mirroring what the parser expects from its
// resolver. The tie-break among several candidates belongs to the parser.
func (r *ProxyRepositoryImpl) FindByText(ctx context.Context, fragment string) ([]*models.Proxy, error) {
	return r.query(ctx, `
		SELECT `+proxyColumns+` FROM venn_proxies
		WHERE term ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || term || '%'
		ORDER BY id`, fragment)
}

func (r *ProxyRepositoryImpl) Update(ctx context.Context, p *models.Proxy) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE venn_proxies
		SET term = $2, match_type = $3, weight = $4, case_sensitive = $5
		WHERE id = $1`,
		p.ID, p.Term, p.MatchType, p.Weight, p.CaseSensitive)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrProxyNotFound)
}

func (r *ProxyRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venn_proxies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrProxyNotFound)
}

func (r *ProxyRepositoryImpl) query(ctx context.Context, query string, args ...interface{}) ([]*models.Proxy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProxy(row rowScanner) (*models.Proxy, error) {
	var p models.Proxy
	err := row.Scan(&p.ID, &p.VariableID, &p.Term, &p.MatchType, &p.Weight, &p.CaseSensitive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
