// Package export turns an in-memory aggregate table into a flat tabular
// form ready for delimited serialization.
//
// The formatter only ever reads the Tables value it is handed; it never
// re-queries or re-aggregates. The exported rows are exactly the rows
// driving the chart the user is looking at.
package export

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"seriesstats/internal/aggregate"
)

// ErrNoData signals an export request before any aggregation has produced
// tables. Recoverable: the front end renders a disabled/empty state.
var ErrNoData = errors.New("export: no aggregated data loaded")

// Kind identifies which aggregate table is being exported.
type Kind string

const (
	// KindByYear exports new-series counts per year.
	KindByYear Kind = "by_year"
	// KindByYearSeason exports counts per (year, season count).
	KindByYearSeason Kind = "by_year_season"
	// KindCrewByYear exports summed crew counts per year.
	KindCrewByYear Kind = "crew_by_year"
	// KindInProduction exports in-production series counts per year.
	KindInProduction Kind = "in_production"
	// KindSummary exports all per-year metrics side by side, aligned on
	// the union of years. This is the classic dashboard download.
	KindSummary Kind = "summary"
)

// Kinds lists every export kind, in presentation order.
func Kinds() []Kind {
	return []Kind{KindByYear, KindByYearSeason, KindCrewByYear, KindInProduction, KindSummary}
}

// ParseKind validates a user-supplied kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case KindByYear, KindByYearSeason, KindCrewByYear, KindInProduction, KindSummary:
		return k, nil
	}
	return "", fmt.Errorf("export: unknown kind %q", s)
}

// Table is the export-ready representation: a fixed column order and rows
// of plain decimal strings, sorted ascending by grouping key.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Format converts one aggregate table into a Table.
//
// t must come from a completed aggregation pass; Format has no access to
// anything else. An unknown kind is a programming error and is reported as
// one.
func Format(t aggregate.Tables, kind Kind) (Table, error) {
	switch kind {
	case KindByYear:
		return yearCountTable(t.ByYear, "year", "count"), nil

	case KindByYearSeason:
		out := Table{Columns: []string{"year", "season_count", "count"}}
		out.Rows = make([][]string, 0, len(t.ByYearSeason))
		for _, r := range t.ByYearSeason {
			out.Rows = append(out.Rows, []string{itoa(r.Year), itoa(r.Seasons), itoa(r.Count)})
		}
		return out, nil

	case KindCrewByYear:
		return yearCountTable(t.CrewByYear, "year", "crew_count"), nil

	case KindInProduction:
		return yearCountTable(t.InProduction, "year", "count"), nil

	case KindSummary:
		return summaryTable(t), nil

	default:
		return Table{}, fmt.Errorf("export: unknown kind %q", kind)
	}
}

func yearCountTable(rows []aggregate.YearCount, keyCol, valCol string) Table {
	out := Table{Columns: []string{keyCol, valCol}}
	out.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		out.Rows = append(out.Rows, []string{itoa(r.Year), itoa(r.Count)})
	}
	return out
}

// summaryTable joins the three per-year metrics on the union of their
// years. Years missing from a metric render as 0: an in-production year
// with no new series genuinely had zero starts, so zero is the honest cell
// value (the original export padded ragged columns instead, which misaligned
// years across columns).
func summaryTable(t aggregate.Tables) Table {
	newSeries := make(map[int]int, len(t.ByYear))
	for _, r := range t.ByYear {
		newSeries[r.Year] = r.Count
	}
	inProd := make(map[int]int, len(t.InProduction))
	for _, r := range t.InProduction {
		inProd[r.Year] = r.Count
	}
	crew := make(map[int]int, len(t.CrewByYear))
	for _, r := range t.CrewByYear {
		crew[r.Year] = r.Count
	}

	yearSet := make(map[int]struct{}, len(inProd))
	for y := range newSeries {
		yearSet[y] = struct{}{}
	}
	for y := range inProd {
		yearSet[y] = struct{}{}
	}
	for y := range crew {
		yearSet[y] = struct{}{}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	out := Table{Columns: []string{"year", "new_series", "in_production", "crew_total"}}
	out.Rows = make([][]string, 0, len(years))
	for _, y := range years {
		out.Rows = append(out.Rows, []string{
			itoa(y), itoa(newSeries[y]), itoa(inProd[y]), itoa(crew[y]),
		})
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
