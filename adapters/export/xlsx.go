package export

import (
	"io"

	"vennqca/domain/qca"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Truth Table"

// WriteXLSX streams the table as an XLSX workbook with the same layout as the
// CSV export, plus a second sheet summarizing the configurations.
func WriteXLSX(w io.Writer, t *qca.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := writeRow(f, sheetName, 1, header(t)); err != nil {
		return err
	}
	for i, r := range t.Cases {
		if err := writeRow(f, sheetName, i+2, caseRow(t, r)); err != nil {
			return err
		}
	}

	if err := writeConfigurations(f, t); err != nil {
		return err
	}
	return f.Write(w)
}

func writeConfigurations(f *excelize.File, t *qca.Table) error {
	const sheet = "Configurations"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeRow(f, sheet, 1, []string{"configuration", "cases", "case_names"}); err != nil {
		return err
	}
	for i, cfg := range t.Configurations() {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(sheet, cell, cfg.Signature); err != nil {
			return err
		}
		cell, _ = excelize.CoordinatesToCellName(2, i+2)
		if err := f.SetCellValue(sheet, cell, cfg.Count); err != nil {
			return err
		}
		cell, _ = excelize.CoordinatesToCellName(3, i+2)
		if err := f.SetCellValue(sheet, cell, joinNames(cfg.CaseNames)); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, values []string) error {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "; "
		}
		out += n
	}
	return out
}
