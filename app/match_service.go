package app

import (
	"context"
	"fmt"
	"log"

	"vennqca/internal/errors"
	"vennqca/models"
	"vennqca/ports"

	"github.com/montanaflynn/stats"
)

// MatchService manages proxy match facts and their human verification
// workflow. The raw matched value is never rewritten; reviews layer a status
// and an optional corrected value on top.
type MatchService struct {
	matches ports.MatchRepository
	proxies ports.ProxyRepository
}

// NewMatchService creates a match service
func NewMatchService(matches ports.MatchRepository, proxies ports.ProxyRepository) *MatchService {
	return &MatchService{matches: matches, proxies: proxies}
}

// Record upserts a match fact, typically from a scraper payload. Re-recording
// a pair resets any prior verification, since the underlying fact changed.
func (s *MatchService) Record(ctx context.Context, m *models.ProxyMatch) error {
	if m.OrganizationID == 0 || m.ProxyID == 0 {
		return errors.InvalidInput("organization_id and proxy_id are required")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return errors.InvalidInput("confidence must be within [0, 1]")
	}
	// Dangling proxy references are tolerated at evaluation time, but new
	// facts must point at a proxy that currently exists.
	if _, err := s.proxies.GetByID(ctx, m.ProxyID); err != nil {
		return err
	}
	if err := s.matches.Upsert(ctx, m); err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}
	return nil
}

func (s *MatchService) ListByOrganization(ctx context.Context, orgID int64) ([]*models.ProxyMatch, error) {
	return s.matches.ListByOrganization(ctx, orgID)
}

func (s *MatchService) ListPending(ctx context.Context, limit int) ([]*models.ProxyMatch, error) {
	return s.matches.ListPending(ctx, limit)
}

// Verify confirms a match fact as correct.
func (s *MatchService) Verify(ctx context.Context, matchID int64, verifiedBy, notes string) error {
	return s.review(ctx, matchID, models.VerificationVerified, nil, verifiedBy, notes)
}

// Reject marks a match fact as a false positive; it reads as false from then on.
func (s *MatchService) Reject(ctx context.Context, matchID int64, verifiedBy, notes string) error {
	return s.review(ctx, matchID, models.VerificationRejected, nil, verifiedBy, notes)
}

// Modify overrides the matched value with a reviewer-supplied correction.
func (s *MatchService) Modify(ctx context.Context, matchID int64, corrected bool, verifiedBy, notes string) error {
	return s.review(ctx, matchID, models.VerificationModified, &corrected, verifiedBy, notes)
}

func (s *MatchService) review(ctx context.Context, matchID int64, status models.VerificationStatus, corrected *bool, verifiedBy, notes string) error {
	if verifiedBy == "" {
		return errors.InvalidInput("verified_by is required")
	}
	if err := s.matches.SetVerification(ctx, matchID, status, corrected, verifiedBy, notes); err != nil {
		return err
	}
	log.Printf("[Match] id=%d reviewed as %s by %s", matchID, status, verifiedBy)
	return nil
}

// BulkVerify confirms a batch of match facts in one pass. The first failure
// stops the batch and reports how many went through.
func (s *MatchService) BulkVerify(ctx context.Context, matchIDs []int64, verifiedBy string) (int, error) {
	for i, id := range matchIDs {
		if err := s.Verify(ctx, id, verifiedBy, ""); err != nil {
			return i, fmt.Errorf("bulk verify stopped at match %d: %w", id, err)
		}
	}
	return len(matchIDs), nil
}

// VerificationStats summarizes the review pipeline.
type VerificationStats struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	Verified         int     `json:"verified"`
	Rejected         int     `json:"rejected"`
	Modified         int     `json:"modified"`
	FoundRate        float64 `json:"found_rate"`
	MeanConfidence   float64 `json:"mean_confidence"`
	MedianConfidence float64 `json:"median_confidence"`
}

// Stats computes counts by status plus confidence aggregates over all match
// facts.
func (s *MatchService) Stats(ctx context.Context) (*VerificationStats, error) {
	all, err := s.matches.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	vs := &VerificationStats{Total: len(all)}
	if len(all) == 0 {
		return vs, nil
	}

	var confidences []float64
	found := 0
	for _, m := range all {
		switch m.Status {
		case models.VerificationVerified:
			vs.Verified++
		case models.VerificationRejected:
			vs.Rejected++
		case models.VerificationModified:
			vs.Modified++
		default:
			vs.Pending++
		}
		if m.EffectiveValue() {
			found++
		}
		confidences = append(confidences, m.Confidence)
	}
	vs.FoundRate = float64(found) / float64(len(all))

	if mean, err := stats.Mean(confidences); err == nil {
		vs.MeanConfidence = mean
	}
	if median, err := stats.Median(confidences); err == nil {
		vs.MedianConfidence = median
	}
	return vs, nil
}
