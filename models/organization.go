package models

import "time"

// Organization is a case in the truth table: the unit the scraper collects
// content for and the evaluator produces per-organization outcomes against.
type Organization struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	URL         string     `db:"url" json:"url,omitempty"`
	Description string     `db:"description" json:"description,omitempty"`
	Verified    bool       `db:"verified" json:"verified"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
