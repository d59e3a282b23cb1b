// Package export serializes truth tables for QCA/Tosmana tooling.
package export

import (
	"encoding/csv"
	"io"

	"vennqca/domain/qca"
)

// header builds the column row: the case name, one column per condition, and
// the configuration signature.
func header(t *qca.Table) []string {
	row := make([]string, 0, len(t.Conditions)+2)
	row = append(row, "case")
	for _, c := range t.Conditions {
		row = append(row, c.Name)
	}
	return append(row, "configuration")
}

func caseRow(t *qca.Table, r qca.CaseRow) []string {
	row := make([]string, 0, len(t.Conditions)+2)
	row = append(row, r.Name)
	for _, c := range r.Cells {
		row = append(row, c.Symbol())
	}
	return append(row, r.Signature())
}

// WriteCSV streams the table as CSV: one row per case, cells rendered as
// 1/0/-/!, with the configuration signature as the last column.
func WriteCSV(w io.Writer, t *qca.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header(t)); err != nil {
		return err
	}
	for _, r := range t.Cases {
		if err := cw.Write(caseRow(t, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
