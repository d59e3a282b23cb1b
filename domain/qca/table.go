// Package qca models the truth table consumed by QCA/Tosmana tooling: a
// matrix of cases (organizations) by binary conditions, with configuration
// signatures and coverage statistics.
package qca

import (
	"strings"
)

// Cell is one tri-state matrix value. Evaluation coerces missing data to
// false internally, but the presentation layer keeps the distinction: a cell
// with no match data under its condition renders as unknown, not as 0.
type Cell int8

const (
	// CellUnknown means no proxy under the condition had any match fact.
	CellUnknown Cell = iota
	// CellFalse is an evaluated 0.
	CellFalse
	// CellTrue is an evaluated 1.
	CellTrue
	// CellError marks a condition that failed to evaluate (corrupt
	// intersection); the rest of the table still completes.
	CellError
)

// Symbol returns the interchange rendering: 1, 0, - for unknown, ! for error.
func (c Cell) Symbol() string {
	switch c {
	case CellTrue:
		return "1"
	case CellFalse:
		return "0"
	case CellError:
		return "!"
	default:
		return "-"
	}
}

// Filled reports whether the cell carries a strict binary value. Unknown and
// error cells count as unfilled for coverage.
func (c Cell) Filled() bool {
	return c == CellTrue || c == CellFalse
}

// Condition is one truth-table column: an intersection or a variable.
type Condition struct {
	ID   int64
	Name string
}

// CaseRow is one truth-table row: an organization and its cell values in
// condition order.
type CaseRow struct {
	OrganizationID int64
	Name           string
	Cells          []Cell
}

// Signature concatenates the row's cell symbols in condition order. Cases
// sharing a signature form one configuration.
func (r CaseRow) Signature() string {
	var b strings.Builder
	for _, c := range r.Cells {
		b.WriteString(c.Symbol())
	}
	return b.String()
}

// Table is the (case x condition) matrix.
type Table struct {
	Conditions []Condition
	Cases      []CaseRow
}

// Configuration aggregates the cases sharing one signature.
type Configuration struct {
	Signature string
	Count     int
	CaseNames []string
}

// Configurations groups cases by signature, ordered by first occurrence.
func (t *Table) Configurations() []Configuration {
	index := make(map[string]int)
	var configs []Configuration
	for _, row := range t.Cases {
		sig := row.Signature()
		if i, ok := index[sig]; ok {
			configs[i].Count++
			configs[i].CaseNames = append(configs[i].CaseNames, row.Name)
			continue
		}
		index[sig] = len(configs)
		configs = append(configs, Configuration{Signature: sig, Count: 1, CaseNames: []string{row.Name}})
	}
	return configs
}

// Stats summarizes the table.
type Stats struct {
	TotalCases             int     `json:"total_cases"`
	TotalConditions        int     `json:"total_conditions"`
	DistinctConfigurations int     `json:"distinct_configurations"`
	FilledCells            int     `json:"filled_cells"`
	TotalCells             int     `json:"total_cells"`
	CoveragePercent        float64 `json:"coverage_percent"`
}

// Stats computes case/condition counts, distinct configurations and data
// coverage (filled cells over total cells).
func (t *Table) Stats() Stats {
	s := Stats{
		TotalCases:             len(t.Cases),
		TotalConditions:        len(t.Conditions),
		DistinctConfigurations: len(t.Configurations()),
		TotalCells:             len(t.Cases) * len(t.Conditions),
	}
	for _, row := range t.Cases {
		for _, c := range row.Cells {
			if c.Filled() {
				s.FilledCells++
			}
		}
	}
	if s.TotalCells > 0 {
		s.CoveragePercent = 100 * float64(s.FilledCells) / float64(s.TotalCells)
	}
	return s
}

// BinaryColumns returns one float64 column per condition over the rows where
// every cell in the pair of columns being compared is filled. Used for
// condition correlation; unknown and error cells become NaN-free by masking
// at the caller. Cells map 1 to 1.0 and 0 to 0.0; unfilled cells are -1.
func (t *Table) BinaryColumns() [][]float64 {
	cols := make([][]float64, len(t.Conditions))
	for j := range t.Conditions {
		col := make([]float64, len(t.Cases))
		for i, row := range t.Cases {
			switch row.Cells[j] {
			case CellTrue:
				col[i] = 1
			case CellFalse:
				col[i] = 0
			default:
				col[i] = -1
			}
		}
		cols[j] = col
	}
	return cols
}
