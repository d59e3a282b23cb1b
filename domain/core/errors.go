package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound             = errors.New("resource not found")
	ErrVariableNotFound     = fmt.Errorf("%w: variable", ErrNotFound)
	ErrProxyNotFound        = fmt.Errorf("%w: proxy", ErrNotFound)
	ErrOrganizationNotFound = fmt.Errorf("%w: organization", ErrNotFound)
	ErrIntersectionNotFound = fmt.Errorf("%w: intersection", ErrNotFound)
	ErrMatchNotFound        = fmt.Errorf("%w: proxy match", ErrNotFound)

	// Validation errors
	ErrInvalidMode     = errors.New("intersection mode data inconsistent")
	ErrInvalidOperator = errors.New("operator must be AND or OR")
	ErrEmptyProxyList  = errors.New("proxy list cannot be empty")
	ErrNameRequired    = errors.New("name is required")
)

// Error constructors with context
func NewNotFoundError(resource string, id int64) error {
	return fmt.Errorf("%w: %s with id %d", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
