package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"seriesstats/internal/records"
)

// streamCSV emits one record per data row, keyed by the header row. Cells
// stay strings; numeric coercion is normalization's job. Ragged rows are
// tolerated: missing cells are simply absent fields, extra cells dropped.
func streamCSV(ctx context.Context, r io.Reader, comma rune, out chan<- records.Raw) error {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	hdr, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("file: read csv header: %w", err)
	}
	headers := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		headers[i] = strings.TrimSpace(h)
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("file: read csv line %d: %w", line, err)
		}

		rec := make(records.Raw, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
