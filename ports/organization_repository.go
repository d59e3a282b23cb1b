package ports

import (
	"context"

	"vennqca/models"
)

// OrganizationRepository defines data operations for organizations (the
// truth table's cases).
type OrganizationRepository interface {
	// Create persists a new organization and assigns its id.
	Create(ctx context.Context, o *models.Organization) error

	// GetByID retrieves an organization, or core.ErrOrganizationNotFound.
	GetByID(ctx context.Context, id int64) (*models.Organization, error)

	// List returns all organizations ordered by name.
	List(ctx context.Context) ([]*models.Organization, error)

	// Update persists changes to an existing organization.
	Update(ctx context.Context, o *models.Organization) error

	// Delete removes an organization and its match facts.
	Delete(ctx context.Context, id int64) error
}
