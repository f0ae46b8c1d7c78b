package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// WriteXLSX serializes t to w as a single-sheet workbook. Numeric cells are
// written as numbers so spreadsheet formulas work on the export directly.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for col, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("export: header cell: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, name); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}

	for i, row := range t.Rows {
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("export: row cell: %w", err)
			}
			if n, convErr := strconv.Atoi(val); convErr == nil {
				err = f.SetCellInt(xlsxSheet, cell, int64(n))
			} else {
				err = f.SetCellValue(xlsxSheet, cell, val)
			}
			if err != nil {
				return fmt.Errorf("export: write row %d: %w", i+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
