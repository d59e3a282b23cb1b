package models

import "time"

// VerificationStatus tracks human review of a match fact. The underlying
// match fact is immutable; verification only overrides the effective value
// that evaluation reads.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationModified VerificationStatus = "modified"
)

// ProxyMatch records whether a proxy's term was found in an organization's
// scraped content, with full provenance. Produced by the external
// scraper/matcher; the evaluator reads it through EffectiveValue.
type ProxyMatch struct {
	ID             int64     `db:"id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	ProxyID        int64     `db:"proxy_id" json:"proxy_id"`
	Found          bool      `db:"found" json:"found"`
	Confidence     float64   `db:"confidence" json:"confidence"`
	SourceURLs     []string  `json:"source_urls,omitempty"`
	Fragments      []string  `json:"fragments,omitempty"`
	MatchedAt      time.Time `db:"matched_at" json:"matched_at"`

	Status         VerificationStatus `db:"status" json:"status"`
	CorrectedValue *bool              `db:"corrected_value" json:"corrected_value,omitempty"`
	VerifiedBy     string             `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt     *time.Time         `db:"verified_at" json:"verified_at,omitempty"`
	Notes          string             `db:"notes" json:"notes,omitempty"`
}

// EffectiveValue is what evaluation reads: the corrected value when a
// reviewer verified or modified the fact with a correction, false when the
// fact was rejected as a false positive, otherwise the raw matched value.
func (m *ProxyMatch) EffectiveValue() bool {
	switch m.Status {
	case VerificationRejected:
		return false
	case VerificationVerified, VerificationModified:
		if m.CorrectedValue != nil {
			return *m.CorrectedValue
		}
	}
	return m.Found
}

// IntersectionResult caches a computed (intersection, organization) outcome
// with the contributing proxy ids for traceability. Never the source of
// truth; refreshed on evaluation and flagged stale when inputs change.
type IntersectionResult struct {
	ID              int64     `db:"id" json:"id"`
	IntersectionID  int64     `db:"intersection_id" json:"intersection_id"`
	OrganizationID  int64     `db:"organization_id" json:"organization_id"`
	Value           bool      `db:"value" json:"value"`
	MatchedProxyIDs []int64   `json:"matched_proxy_ids"`
	DataFound       bool      `db:"data_found" json:"data_found"`
	CalculatedAt    time.Time `db:"calculated_at" json:"calculated_at"`
	Stale           bool      `db:"stale" json:"stale"`
}
