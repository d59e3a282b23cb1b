package models

import (
	"strings"
	"time"

	"vennqca/domain/core"
)

// MatchType selects how a proxy term is probed against page text.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
	MatchFuzzy    MatchType = "fuzzy"
)

// ValidMatchType reports whether t is a recognized match type.
func ValidMatchType(t MatchType) bool {
	switch t {
	case MatchExact, MatchContains, MatchRegex, MatchFuzzy:
		return true
	}
	return false
}

// Variable is a named analytical dimension grouping related proxies,
// e.g. "Liderazgo Femenino".
type Variable struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Code        string     `db:"code" json:"code"`
	Description string     `db:"description" json:"description,omitempty"`
	Category    string     `db:"category" json:"category,omitempty"`
	Color       string     `db:"color" json:"color,omitempty"`
	Weight      float64    `db:"weight" json:"weight"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Validate checks the fields a variable must carry before persisting.
func (v *Variable) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return core.ErrNameRequired
	}
	if strings.TrimSpace(v.Code) == "" {
		return core.NewValidationError("code", "unique code is required")
	}
	return nil
}

// Proxy is a search-term definition standing in for the presence of its
// variable's concept in scraped text.
type Proxy struct {
	ID            int64     `db:"id" json:"id"`
	VariableID    int64     `db:"variable_id" json:"variable_id"`
	Term          string    `db:"term" json:"term"`
	MatchType     MatchType `db:"match_type" json:"match_type"`
	Weight        float64   `db:"weight" json:"weight"`
	CaseSensitive bool      `db:"case_sensitive" json:"case_sensitive"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Validate checks the fields a proxy must carry before persisting.
func (p *Proxy) Validate() error {
	if strings.TrimSpace(p.Term) == "" {
		return core.NewValidationError("term", "search term is required")
	}
	if p.MatchType == "" {
		p.MatchType = MatchContains
	}
	if !ValidMatchType(p.MatchType) {
		return core.NewValidationError("match_type", "must be exact, contains, regex or fuzzy")
	}
	if p.Weight == 0 {
		p.Weight = 1.0
	}
	return nil
}
