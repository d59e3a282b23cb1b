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

// MatchRepositoryImpl implements MatchRepository for PostgreSQL
type MatchRepositoryImpl struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new PostgreSQL match repository
func NewMatchRepository(db *sqlx.DB) ports.MatchRepository {
	return &MatchRepositoryImpl{db: db}
}

const matchColumns = `id, organization_id, proxy_id, found, confidence, source_urls, fragments,
	matched_at, status, corrected_value, verified_by, verified_at, notes`

func (r *MatchRepositoryImpl) Upsert(ctx context.Context, m *models.ProxyMatch) error {
	urls, err := jsonbStrings(m.SourceURLs)
	if err != nil {
		return err
	}
	fragments, err := jsonbStrings(m.Fragments)
	if err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = models.VerificationPending
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO venn_matches (organization_id, proxy_id, found, confidence, source_urls, fragments, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, proxy_id) DO UPDATE
		SET found = EXCLUDED.found,
		    confidence = EXCLUDED.confidence,
		    source_urls = EXCLUDED.source_urls,
		    fragments = EXCLUDED.fragments,
		    matched_at = NOW(),
		    status = EXCLUDED.status,
		    corrected_value = NULL,
		    verified_by = '',
		    verified_at = NULL,
		    notes = ''
		RETURNING id, matched_at`,
		m.OrganizationID, m.ProxyID, m.Found, m.Confidence, urls, fragments, m.Status,
	).Scan(&m.ID, &m.MatchedAt)
}

func (r *MatchRepositoryImpl) Get(ctx context.Context, orgID, proxyID int64) (*models.ProxyMatch, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM venn_matches
		WHERE organization_id = $1 AND proxy_id = $2`, orgID, proxyID)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrMatchNotFound
	}
	return m, err
}

func (r *MatchRepositoryImpl) ListByOrganization(ctx context.Context, orgID int64) ([]*models.ProxyMatch, error) {
	return r.query(ctx, `
		SELECT `+matchColumns+` FROM venn_matches
		WHERE organization_id = $1 ORDER BY proxy_id`, orgID)
}

func (r *MatchRepositoryImpl) ListPending(ctx context.Context, limit int) ([]*models.ProxyMatch, error) {
	q := `SELECT ` + matchColumns + ` FROM venn_matches WHERE status = 'pending' ORDER BY matched_at`
	if limit > 0 {
		return r.query(ctx, q+` LIMIT $1`, limit)
	}
	return r.query(ctx, q)
}

func (r *MatchRepositoryImpl) SetVerification(ctx context.Context, matchID int64, status models.VerificationStatus, corrected *bool, verifiedBy, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE venn_matches
		SET status = $2, corrected_value = $3, verified_by = $4, verified_at = NOW(), notes = $5
		WHERE id = $1`,
		matchID, status, corrected, verifiedBy, notes)
	if err != nil {
		return err
	}
	return requireRow(res, core.ErrMatchNotFound)
}

func (r *MatchRepositoryImpl) ListAll(ctx context.Context) ([]*models.ProxyMatch, error) {
	return r.query(ctx, `SELECT `+matchColumns+` FROM venn_matches ORDER BY id`)
}

func (r *MatchRepositoryImpl) query(ctx context.Context, query string, args ...interface{}) ([]*models.ProxyMatch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ProxyMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row rowScanner) (*models.ProxyMatch, error) {
	var m models.ProxyMatch
	var urls, fragments []byte
	var verifiedAt sql.NullTime
	err := row.Scan(&m.ID, &m.OrganizationID, &m.ProxyID, &m.Found, &m.Confidence,
		&urls, &fragments, &m.MatchedAt, &m.Status, &m.CorrectedValue,
		&m.VerifiedBy, &verifiedAt, &m.Notes)
	if err != nil {
		return nil, err
	}
	if err := jsonbDecodeStrings(urls, &m.SourceURLs); err != nil {
		return nil, err
	}
	if err := jsonbDecodeStrings(fragments, &m.Fragments); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		m.VerifiedAt = &verifiedAt.Time
	}
	return &m, nil
}

func jsonbStrings(values []string) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func jsonbDecodeStrings(data []byte, dest *[]string) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
