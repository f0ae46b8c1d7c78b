package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV serializes t to w as RFC 4180 CSV: one header row, then the data
// rows in table order. Values are written as-is (Format already renders
// numbers as plain decimal integers).
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
