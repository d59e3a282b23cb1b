package ports

import (
	"context"

	"vennqca/models"
)

// VariableRepository defines data operations for analytical variables.
type VariableRepository interface {
	// Create persists a new variable and assigns its id.
	Create(ctx context.Context, v *models.Variable) error

	// GetByID retrieves a variable, or core.ErrVariableNotFound.
	GetByID(ctx context.Context, id int64) (*models.Variable, error)

	// List returns all variables ordered by id.
	List(ctx context.Context) ([]*models.Variable, error)

	// Update persists changes to an existing variable.
	Update(ctx context.Context, v *models.Variable) error

	// Delete removes a variable. Its proxies are deleted with it; expression
	// trees referencing those proxies stay evaluable (dangling leaves read
	// as not-found).
	Delete(ctx context.Context, id int64) error
}

// ProxyRepository defines data operations for search-term proxies.
type ProxyRepository interface {
	// Create persists a new proxy under its variable and assigns its id.
	Create(ctx context.Context, p *models.Proxy) error

	// GetByID retrieves a proxy, or core.ErrProxyNotFound.
	GetByID(ctx context.Context, id int64) (*models.Proxy, error)

	// ListByVariable returns a variable's proxies in creation order.
	ListByVariable(ctx context.Context, variableID int64) ([]*models.Proxy, error)

	// List returns all proxies ordered by id.
	List(ctx context.Context) ([]*models.Proxy, error)

	// FindByText returns proxies whose term matches the fragment by
	// case-insensitive substring in either direction. Used by the
	// expression parser's text resolution.
	FindByText(ctx context.Context, fragment string) ([]*models.Proxy, error)

	// Update persists changes to an existing proxy.
	Update(ctx context.Context, p *models.Proxy) error

	// Delete removes a proxy independently of its variable.
	Delete(ctx context.Context, id int64) error
}
