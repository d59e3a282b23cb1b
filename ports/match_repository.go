package ports

import (
	"context"

	"vennqca/models"
)

// MatchRepository defines data operations for proxy match facts.
type MatchRepository interface {
	// Upsert inserts or replaces the match fact for the fact's
	// (organization, proxy) pair.
	Upsert(ctx context.Context, m *models.ProxyMatch) error

	// Get retrieves the match fact for an (organization, proxy) pair, or
	// core.ErrMatchNotFound when none exists.
	Get(ctx context.Context, orgID, proxyID int64) (*models.ProxyMatch, error)

	// ListByOrganization returns an organization's match facts.
	ListByOrganization(ctx context.Context, orgID int64) ([]*models.ProxyMatch, error)

	// ListPending returns match facts awaiting human verification, oldest
	// first, up to limit (0 means no limit).
	ListPending(ctx context.Context, limit int) ([]*models.ProxyMatch, error)

	// SetVerification records a review outcome: status, optional corrected
	// value, reviewer and notes. The underlying match fact stays untouched.
	SetVerification(ctx context.Context, matchID int64, status models.VerificationStatus, corrected *bool, verifiedBy, notes string) error

	// ListAll returns every match fact. Used by verification statistics.
	ListAll(ctx context.Context) ([]*models.ProxyMatch, error)
}
