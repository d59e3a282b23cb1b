package ports

import (
	"context"

	"vennqca/models"
)

// IntersectionRepository defines data operations for intersections and their
// cached per-organization results.
type IntersectionRepository interface {
	// Create persists a new intersection and assigns its id.
	Create(ctx context.Context, in *models.Intersection) error

	// GetByID retrieves an intersection, or core.ErrIntersectionNotFound.
	GetByID(ctx context.Context, id int64) (*models.Intersection, error)

	// List returns active intersections ordered by id.
	List(ctx context.Context) ([]*models.Intersection, error)

	// Update persists changes to an existing intersection, including mode
	// changes; the caller is responsible for having cleared stale mode
	// fields via SyncModeFlags.
	Update(ctx context.Context, in *models.Intersection) error

	// Delete hard-deletes an intersection and its cached results. Referenced
	// proxies and variables are untouched.
	Delete(ctx context.Context, id int64) error

	// SaveResult caches a computed (intersection, organization) outcome,
	// replacing any previous one for the pair.
	SaveResult(ctx context.Context, r *models.IntersectionResult) error

	// ListResults returns the cached outcomes for an intersection.
	ListResults(ctx context.Context, intersectionID int64) ([]*models.IntersectionResult, error)

	// MarkResultsStale flags every cached outcome for an intersection, used
	// after its logic changes.
	MarkResultsStale(ctx context.Context, intersectionID int64) error
}
