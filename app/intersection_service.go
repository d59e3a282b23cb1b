package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vennqca/domain/core"
	"vennqca/domain/expr"
	"vennqca/models"
	"vennqca/ports"

	gocache "github.com/patrickmn/go-cache"
)

// IntersectionService orchestrates the intersection registry: CRUD, textual
// parsing, normalization of the three modes into expression trees, and
// per-organization evaluation with cached results.
type IntersectionService struct {
	intersections ports.IntersectionRepository
	variables     ports.VariableRepository
	proxies       ports.ProxyRepository
	matches       ports.MatchRepository

	parser    *expr.Parser
	evaluator *expr.Evaluator

	variableOperator models.Operator
	maxDepth         int

	// trees caches normalized trees keyed by (id, updated_at) so a stale
	// entry can never be served after a write bumps the timestamp.
	trees *gocache.Cache
}

// NewIntersectionService creates an intersection service. variableOperator is
// the policy combining one variable's proxies in variable mode; maxDepth <= 0
// selects the engine default.
func NewIntersectionService(
	intersections ports.IntersectionRepository,
	variables ports.VariableRepository,
	proxies ports.ProxyRepository,
	matches ports.MatchRepository,
	variableOperator models.Operator,
	maxDepth int,
	treeTTL time.Duration,
) *IntersectionService {
	if maxDepth <= 0 {
		maxDepth = expr.DefaultMaxDepth
	}
	if treeTTL <= 0 {
		treeTTL = 5 * time.Minute
	}
	s := &IntersectionService{
		intersections:    intersections,
		variables:        variables,
		proxies:          proxies,
		matches:          matches,
		variableOperator: variableOperator,
		maxDepth:         maxDepth,
		trees:            gocache.New(treeTTL, 2*treeTTL),
	}
	s.parser = expr.NewParser(&repoResolver{proxies: proxies, variables: variables}, maxDepth)
	s.evaluator = expr.NewEvaluator(&repoMatchLookup{matches: matches}, maxDepth)
	return s
}

// Evaluator exposes the service's evaluator for batch consumers such as the
// truth-table builder.
func (s *IntersectionService) Evaluator() *expr.Evaluator {
	return s.evaluator
}

// ParsePreview parses a textual expression and reports the tree, the resolved
// proxies and the display rendering, without persisting anything.
type ParsePreview struct {
	Tree    *expr.Node           `json:"tree"`
	Matched []expr.ResolvedProxy `json:"matched_proxies"`
	Display string               `json:"display"`
}

// Parse converts expression text into a preview the UI shows for
// confirmation before saving.
func (s *IntersectionService) Parse(ctx context.Context, input string) (*ParsePreview, error) {
	result, err := s.parser.Parse(ctx, input)
	if err != nil {
		return nil, err
	}
	display, err := s.renderDisplay(ctx, result.Tree)
	if err != nil {
		return nil, err
	}
	return &ParsePreview{Tree: result.Tree, Matched: result.Matched, Display: display}, nil
}

// Create validates and persists a new intersection. Expression text, when
// given, is parsed first; the normalized display is regenerated from
// whichever mode is authoritative.
func (s *IntersectionService) Create(ctx context.Context, in *models.Intersection, expressionText string) error {
	if err := s.prepare(ctx, in, expressionText); err != nil {
		return err
	}
	if err := s.intersections.Create(ctx, in); err != nil {
		return fmt.Errorf("failed to create intersection: %w", err)
	}
	log.Printf("[Intersection] created %q (id=%d, mode=%s)", in.Name, in.ID, in.Mode)
	return nil
}

// Update validates and persists changes. Any change invalidates the cached
// tree and flags previously cached results stale.
func (s *IntersectionService) Update(ctx context.Context, in *models.Intersection, expressionText string) error {
	if err := s.prepare(ctx, in, expressionText); err != nil {
		return err
	}
	if err := s.intersections.Update(ctx, in); err != nil {
		return err
	}
	s.trees.Flush()
	if err := s.intersections.MarkResultsStale(ctx, in.ID); err != nil {
		return fmt.Errorf("failed to flag stale results: %w", err)
	}
	log.Printf("[Intersection] updated %q (id=%d, mode=%s)", in.Name, in.ID, in.Mode)
	return nil
}

// prepare runs the shared write path: parse expression text if present, sync
// the mode flags, validate via the explicit spec and regenerate the display.
func (s *IntersectionService) prepare(ctx context.Context, in *models.Intersection, expressionText string) error {
	if expressionText != "" {
		result, err := s.parser.Parse(ctx, expressionText)
		if err != nil {
			return err
		}
		doc, err := result.Tree.Encode()
		if err != nil {
			return err
		}
		in.Mode = models.ModeExpression
		in.LogicExpression = doc
	}
	in.SyncModeFlags()

	spec, err := in.Spec()
	if err != nil {
		return err
	}
	tree, err := spec.Normalize(ctx, s.normalizeDeps())
	if err != nil {
		return err
	}
	display, err := s.renderDisplay(ctx, tree)
	if err != nil {
		return err
	}
	in.ExpressionDisplay = display
	return nil
}

func (s *IntersectionService) GetByID(ctx context.Context, id int64) (*models.Intersection, error) {
	return s.intersections.GetByID(ctx, id)
}

func (s *IntersectionService) List(ctx context.Context) ([]*models.Intersection, error) {
	return s.intersections.List(ctx)
}

func (s *IntersectionService) Delete(ctx context.Context, id int64) error {
	if err := s.intersections.Delete(ctx, id); err != nil {
		return err
	}
	s.trees.Flush()
	log.Printf("[Intersection] deleted id=%d", id)
	return nil
}

// NormalizedTree returns the expression tree the intersection evaluates,
// whichever mode it is stored in. Trees are cached per (id, updated_at).
func (s *IntersectionService) NormalizedTree(ctx context.Context, in *models.Intersection) (*expr.Node, error) {
	key := treeCacheKey(in)
	if cached, ok := s.trees.Get(key); ok {
		return cached.(*expr.Node), nil
	}

	spec, err := in.Spec()
	if err != nil {
		return nil, err
	}
	tree, err := spec.Normalize(ctx, s.normalizeDeps())
	if err != nil {
		return nil, err
	}
	s.trees.Set(key, tree, gocache.DefaultExpiration)
	return tree, nil
}

// EvaluateResult is a single (intersection, organization) outcome.
type EvaluateResult struct {
	IntersectionID  int64   `json:"intersection_id"`
	OrganizationID  int64   `json:"organization_id"`
	Value           bool    `json:"value"`
	MatchedProxyIDs []int64 `json:"matched_proxy_ids"`
	DataFound       bool    `json:"data_found"`
}

// Evaluate reduces one intersection for one organization, persisting the
// outcome as a cached result. Proxies deleted since the tree was saved read
// as not-found and never fail the evaluation.
func (s *IntersectionService) Evaluate(ctx context.Context, intersectionID, orgID int64) (*EvaluateResult, error) {
	in, err := s.intersections.GetByID(ctx, intersectionID)
	if err != nil {
		return nil, err
	}
	tree, err := s.NormalizedTree(ctx, in)
	if err != nil {
		return nil, err
	}
	outcome, err := s.evaluator.Evaluate(ctx, tree, orgID)
	if err != nil {
		return nil, err
	}

	stored := &models.IntersectionResult{
		IntersectionID:  intersectionID,
		OrganizationID:  orgID,
		Value:           outcome.Value,
		MatchedProxyIDs: outcome.Contributing,
		DataFound:       outcome.DataFound,
	}
	if err := s.intersections.SaveResult(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to persist evaluation result: %w", err)
	}

	return &EvaluateResult{
		IntersectionID:  intersectionID,
		OrganizationID:  orgID,
		Value:           outcome.Value,
		MatchedProxyIDs: outcome.Contributing,
		DataFound:       outcome.DataFound,
	}, nil
}

// Results returns the cached per-organization outcomes for an intersection.
func (s *IntersectionService) Results(ctx context.Context, intersectionID int64) ([]*models.IntersectionResult, error) {
	if _, err := s.intersections.GetByID(ctx, intersectionID); err != nil {
		return nil, err
	}
	return s.intersections.ListResults(ctx, intersectionID)
}

func (s *IntersectionService) normalizeDeps() models.NormalizeDeps {
	return models.NormalizeDeps{
		ProxiesForVariable: func(ctx context.Context, variableID int64) ([]int64, error) {
			proxies, err := s.proxies.ListByVariable(ctx, variableID)
			if err != nil {
				return nil, err
			}
			ids := make([]int64, 0, len(proxies))
			for _, p := range proxies {
				ids = append(ids, p.ID)
			}
			return ids, nil
		},
		VariableOperator: s.variableOperator,
		MaxDepth:         s.maxDepth,
	}
}

func (s *IntersectionService) renderDisplay(ctx context.Context, tree *expr.Node) (string, error) {
	terms := make(map[int64]string)
	for _, id := range tree.Leaves() {
		if _, ok := terms[id]; ok {
			continue
		}
		p, err := s.proxies.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrProxyNotFound) {
				continue
			}
			return "", err
		}
		terms[id] = p.Term
	}
	return expr.Render(tree, func(proxyID int64) (string, bool) {
		term, ok := terms[proxyID]
		return term, ok
	}), nil
}

func treeCacheKey(in *models.Intersection) string {
	stamp := in.CreatedAt.UnixNano()
	if in.UpdatedAt != nil {
		stamp = in.UpdatedAt.UnixNano()
	}
	return fmt.Sprintf("%d@%d", in.ID, stamp)
}

// repoResolver adapts the proxy repository to the parser's resolver,
// decorating candidates with their variable names for the preview.
type repoResolver struct {
	proxies   ports.ProxyRepository
	variables ports.VariableRepository
}

func (r *repoResolver) FindByText(ctx context.Context, fragment string) ([]expr.ProxyInfo, error) {
	candidates, err := r.proxies.FindByText(ctx, fragment)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string)
	out := make([]expr.ProxyInfo, 0, len(candidates))
	for _, p := range candidates {
		name, ok := names[p.VariableID]
		if !ok {
			v, err := r.variables.GetByID(ctx, p.VariableID)
			if err == nil {
				name = v.Name
			}
			names[p.VariableID] = name
		}
		out = append(out, expr.ProxyInfo{
			ID:           p.ID,
			Term:         p.Term,
			VariableID:   p.VariableID,
			VariableName: name,
		})
	}
	return out, nil
}

// repoMatchLookup adapts the match repository to the evaluator's lookup.
// Missing facts and dangling proxy references both read as not-found.
type repoMatchLookup struct {
	matches ports.MatchRepository
}

func (l *repoMatchLookup) Effective(ctx context.Context, orgID, proxyID int64) (bool, bool, error) {
	m, err := l.matches.Get(ctx, orgID, proxyID)
	if err != nil {
		if errors.Is(err, core.ErrMatchNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return m.EffectiveValue(), true, nil
}
