package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier for transient entities (batches, sessions)
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// BatchID identifies a single evaluation batch (one truth-table export or
// one bulk evaluation call). Memoization never outlives the batch it belongs to.
type BatchID ID

// NewBatchID creates a new batch identifier
func NewBatchID() BatchID { return BatchID(NewID()) }

func (id BatchID) String() string { return ID(id).String() }
