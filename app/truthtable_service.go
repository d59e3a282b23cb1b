package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"vennqca/domain/expr"
	"vennqca/domain/qca"
	"vennqca/models"
	"vennqca/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// TruthTableService builds the QCA truth table: every organization evaluated
// against every active intersection, assembled into a case-by-condition
// matrix with configurations, coverage and condition correlations.
type TruthTableService struct {
	organizations ports.OrganizationRepository
	intersections *IntersectionService
	parallelism   int
}

// NewTruthTableService creates a truth-table service. parallelism bounds
// concurrent per-organization evaluation; values below 1 run sequentially.
func NewTruthTableService(organizations ports.OrganizationRepository, intersections *IntersectionService, parallelism int) *TruthTableService {
	if parallelism < 1 {
		parallelism = 1
	}
	return &TruthTableService{
		organizations: organizations,
		intersections: intersections,
		parallelism:   parallelism,
	}
}

// ConditionCorrelation is the Pearson correlation between two conditions over
// the cases where both cells are filled.
type ConditionCorrelation struct {
	ConditionA string  `json:"condition_a"`
	ConditionB string  `json:"condition_b"`
	R          float64 `json:"r"`
	N          int     `json:"n"`
}

// BuildResult bundles the table with its derived views.
type BuildResult struct {
	Table          *qca.Table
	Configurations []qca.Configuration
	Stats          qca.Stats
	Correlations   []ConditionCorrelation
}

// Build evaluates all organizations against all active intersections. A
// corrupt intersection (undecodable tree, invalid mode data) becomes an error
// column; it never aborts the rest of the table. Organizations evaluate
// concurrently within one memoization batch, so shared subtrees are computed
// once per organization set.
func (s *TruthTableService) Build(ctx context.Context) (*BuildResult, error) {
	orgs, err := s.organizations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	active, err := s.intersections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list intersections: %w", err)
	}

	table := &qca.Table{}
	trees := make([]*expr.Node, len(active))
	for i, in := range active {
		table.Conditions = append(table.Conditions, qca.Condition{ID: in.ID, Name: in.Name})
		tree, err := s.intersections.NormalizedTree(ctx, in)
		if err != nil {
			log.Printf("[TruthTable] condition %q (id=%d) is corrupt, marking column as error: %v", in.Name, in.ID, err)
			continue
		}
		trees[i] = tree
	}

	batch := s.intersections.Evaluator().NewBatch()
	rows := make([]qca.CaseRow, len(orgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	var mu sync.Mutex
	for i, org := range orgs {
		g.Go(func() error {
			row := qca.CaseRow{
				OrganizationID: org.ID,
				Name:           org.Name,
				Cells:          make([]qca.Cell, len(active)),
			}
			for j := range active {
				if trees[j] == nil {
					row.Cells[j] = qca.CellError
					continue
				}
				outcome, err := batch.Evaluate(gctx, trees[j], org.ID)
				if err != nil {
					return fmt.Errorf("evaluating %q for %q: %w", active[j].Name, org.Name, err)
				}
				row.Cells[j] = cellFor(outcome)
			}
			mu.Lock()
			rows[i] = row
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	table.Cases = rows

	computed, memoized := batch.Evaluations()
	log.Printf("[TruthTable] built %dx%d table (batch=%s, computed=%d, memoized=%d)",
		len(rows), len(active), batch.ID, computed, memoized)

	return &BuildResult{
		Table:          table,
		Configurations: table.Configurations(),
		Stats:          table.Stats(),
		Correlations:   correlations(table),
	}, nil
}

func cellFor(outcome *expr.Outcome) qca.Cell {
	if !outcome.DataFound {
		return qca.CellUnknown
	}
	if outcome.Value {
		return qca.CellTrue
	}
	return qca.CellFalse
}

// correlations computes pairwise Pearson correlation between conditions over
// the cases where both cells are filled. Pairs with fewer than three shared
// cases, or a constant column, are skipped.
func correlations(t *qca.Table) []ConditionCorrelation {
	cols := t.BinaryColumns()
	var out []ConditionCorrelation
	for a := 0; a < len(cols); a++ {
		for b := a + 1; b < len(cols); b++ {
			var xs, ys []float64
			for i := range cols[a] {
				if cols[a][i] < 0 || cols[b][i] < 0 {
					continue
				}
				xs = append(xs, cols[a][i])
				ys = append(ys, cols[b][i])
			}
			if len(xs) < 3 || constant(xs) || constant(ys) {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			out = append(out, ConditionCorrelation{
				ConditionA: t.Conditions[a].Name,
				ConditionB: t.Conditions[b].Name,
				R:          r,
				N:          len(xs),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return abs(out[i].R) > abs(out[j].R) })
	return out
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// VariableTable builds a truth table with variables as conditions instead of
// intersections: each variable's column is the OR of its proxies, the legacy
// Tosmana export shape.
func (s *TruthTableService) VariableTable(ctx context.Context, variables ports.VariableRepository) (*BuildResult, error) {
	vars, err := variables.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	orgs, err := s.organizations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	table := &qca.Table{}
	trees := make([]*expr.Node, len(vars))
	deps := s.intersections.normalizeDeps()
	for i, v := range vars {
		table.Conditions = append(table.Conditions, qca.Condition{ID: v.ID, Name: v.Code})
		spec := models.VariableSpec{VariableIDs: []int64{v.ID}, Operator: models.OperatorOr}
		tree, err := spec.Normalize(ctx, deps)
		if err != nil {
			log.Printf("[TruthTable] variable %q (id=%d) has no evaluable proxies: %v", v.Code, v.ID, err)
			continue
		}
		trees[i] = tree
	}

	batch := s.intersections.Evaluator().NewBatch()
	for _, org := range orgs {
		row := qca.CaseRow{OrganizationID: org.ID, Name: org.Name, Cells: make([]qca.Cell, len(vars))}
		for j := range vars {
			if trees[j] == nil {
				row.Cells[j] = qca.CellError
				continue
			}
			outcome, err := batch.Evaluate(ctx, trees[j], org.ID)
			if err != nil {
				return nil, fmt.Errorf("evaluating variable %q for %q: %w", vars[j].Code, org.Name, err)
			}
			row.Cells[j] = cellFor(outcome)
		}
		table.Cases = append(table.Cases, row)
	}

	return &BuildResult{
		Table:          table,
		Configurations: table.Configurations(),
		Stats:          table.Stats(),
		Correlations:   correlations(table),
	}, nil
}
