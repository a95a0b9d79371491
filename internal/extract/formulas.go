package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FormulasModuleName names the synthetic module built from cell formulas.
const FormulasModuleName = "Excel_Formulas"

type cellFormula struct {
	sheet   string
	cell    string
	formula string
}

// readFormulas lists every formula cell of a workbook in sheet order.
func readFormulas(r io.Reader) ([]cellFormula, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var formulas []cellFormula
	for _, sheet := range f.GetSheetList() {
		maxRow, maxCol, err := sheetExtent(f, sheet)
		if err != nil {
			return nil, err
		}
		for row := 1; row <= maxRow; row++ {
			for col := 1; col <= maxCol; col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					return nil, err
				}
				formula, err := f.GetCellFormula(sheet, cell)
				if err != nil {
					return nil, fmt.Errorf("read %s!%s: %w", sheet, cell, err)
				}
				if formula == "" {
					continue
				}
				if !strings.HasPrefix(formula, "=") {
					formula = "=" + formula
				}
				formulas = append(formulas, cellFormula{sheet: sheet, cell: cell, formula: formula})
			}
		}
	}
	return formulas, nil
}

// sheetExtent combines the declared sheet dimension with the populated
// rows, since either may under-report.
func sheetExtent(f *excelize.File, sheet string) (int, int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}

	if dim, err := f.GetSheetDimension(sheet); err == nil && dim != "" {
		parts := strings.Split(dim, ":")
		if col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1]); err == nil {
			maxRow = max(maxRow, row)
			maxCol = max(maxCol, col)
		}
	}
	return maxRow, maxCol, nil
}

// formulasSource renders formulas as macro-style statements, one
// Range(...).Formula assignment per cell.
func formulasSource(formulas []cellFormula) string {
	lines := []string{"' Converted Excel Formulas to VBA-style code", ""}
	for _, f := range formulas {
		lines = append(lines,
			fmt.Sprintf("' Sheet: %s, Cell: %s", f.sheet, f.cell),
			fmt.Sprintf("Range(%q).Formula = \"%s\"", f.cell, strings.ReplaceAll(f.formula, `"`, `""`)),
			"",
		)
	}
	return strings.Join(lines, "\n")
}
