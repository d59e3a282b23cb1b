package qca

import (
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Conditions: []Condition{{ID: 1, Name: "LiderazgoFemenino"}, {ID: 2, Name: "MercadosLocales"}},
		Cases: []CaseRow{
			{OrganizationID: 1, Name: "Org Uno", Cells: []Cell{CellTrue, CellTrue}},
			{OrganizationID: 2, Name: "Org Dos", Cells: []Cell{CellTrue, CellFalse}},
			{OrganizationID: 3, Name: "Org Tres", Cells: []Cell{CellTrue, CellTrue}},
		},
	}
}

func TestSignatures(t *testing.T) {
	table := sampleTable()
	want := []string{"11", "10", "11"}
	for i, row := range table.Cases {
		if got := row.Signature(); got != want[i] {
			t.Errorf("case %s signature = %q, want %q", row.Name, got, want[i])
		}
	}
}

func TestConfigurationsAggregateBySignature(t *testing.T) {
	configs := sampleTable().Configurations()
	if len(configs) != 2 {
		t.Fatalf("distinct configurations = %d, want 2", len(configs))
	}
	if configs[0].Signature != "11" || configs[0].Count != 2 {
		t.Errorf("first configuration = %+v, want signature 11 with 2 cases", configs[0])
	}
	if configs[1].Signature != "10" || configs[1].Count != 1 {
		t.Errorf("second configuration = %+v, want signature 10 with 1 case", configs[1])
	}
	if len(configs[0].CaseNames) != 2 || configs[0].CaseNames[0] != "Org Uno" || configs[0].CaseNames[1] != "Org Tres" {
		t.Errorf("configuration cases = %v", configs[0].CaseNames)
	}
}

func TestStatsFullCoverage(t *testing.T) {
	stats := sampleTable().Stats()
	if stats.TotalCases != 3 || stats.TotalConditions != 2 {
		t.Errorf("dimensions = %dx%d", stats.TotalCases, stats.TotalConditions)
	}
	if stats.DistinctConfigurations != 2 {
		t.Errorf("distinct configurations = %d, want 2", stats.DistinctConfigurations)
	}
	if stats.CoveragePercent != 100 {
		t.Errorf("coverage = %.1f%%, want 100%%", stats.CoveragePercent)
	}
}

func TestUnknownAndErrorCellsReduceCoverage(t *testing.T) {
	table := &Table{
		Conditions: []Condition{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		Cases: []CaseRow{
			{OrganizationID: 1, Name: "X", Cells: []Cell{CellTrue, CellUnknown}},
			{OrganizationID: 2, Name: "Y", Cells: []Cell{CellError, CellFalse}},
		},
	}

	if got := table.Cases[0].Signature(); got != "1-" {
		t.Errorf("signature = %q, want 1-", got)
	}
	if got := table.Cases[1].Signature(); got != "!0" {
		t.Errorf("signature = %q, want !0", got)
	}

	stats := table.Stats()
	if stats.FilledCells != 2 || stats.CoveragePercent != 50 {
		t.Errorf("filled = %d, coverage = %.1f%%; want 2 and 50%%", stats.FilledCells, stats.CoveragePercent)
	}
}

func TestEmptyTableStats(t *testing.T) {
	stats := (&Table{}).Stats()
	if stats.TotalCells != 0 || stats.CoveragePercent != 0 {
		t.Errorf("empty table stats = %+v", stats)
	}
}
