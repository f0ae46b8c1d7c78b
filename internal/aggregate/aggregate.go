// Package aggregate folds normalized records into the tables that drive the
// charts and exports.
//
// The fold is a single streaming pass: records arrive one at a time, state
// is bounded by the number of distinct (year, seasons) keys, and the final
// tables are materialized once, sorted ascending by key, so identical input
// yields identical output regardless of record order.
//
// Policy notes, fixed here rather than scattered through callers:
//   - Records with an unknown year are excluded from every year-keyed table.
//     Bucketing them under a sentinel year would put a misleading spike at
//     the chart's left edge. They are still counted in SkippedYear.
//   - CrewByYear is a SUM of per-record crew counts, not an average. The
//     displayed metric is "how much crew activity occurred in year Y";
//     callers wanting a mean can divide by the matching ByYear count.
package aggregate

import "sort"

// YearCount is one row of a year-keyed table.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearSeasonCount is one row of the (year, seasons)-keyed table.
type YearSeasonCount struct {
	Year    int `json:"year"`
	Seasons int `json:"season_count"`
	Count   int `json:"count"`
}

// Tables holds every aggregate produced by one load, already sorted. A
// Tables value is immutable once built; exports format these exact rows.
type Tables struct {
	// ByYear counts new series per production year.
	ByYear []YearCount `json:"by_year"`

	// ByYearSeason counts series per (year, season count) pair.
	ByYearSeason []YearSeasonCount `json:"by_year_season"`

	// CrewByYear sums crew counts per production year.
	CrewByYear []YearCount `json:"crew_by_year"`

	// InProduction counts series in production per year: a series started
	// in year Y with S seasons is in production for Y .. Y+S-1.
	InProduction []YearCount `json:"in_production"`

	// Records is the number of records folded, including skipped ones.
	Records int `json:"records"`

	// SkippedYear is the number of records excluded from year-keyed
	// tables because their year was unknown.
	SkippedYear int `json:"skipped_year"`
}

// Empty reports whether the tables carry no rows at all. An empty chart is
// a valid, renderable state; this is for callers that want to label it.
func (t Tables) Empty() bool {
	return len(t.ByYear) == 0 && len(t.CrewByYear) == 0 && len(t.InProduction) == 0
}

// maxProductionSpan caps how many years one record may contribute to the
// InProduction table. The expansion walks one year per season; season counts
// beyond any plausible series lifetime are data defects, and expanding them
// would let a single record stall the fold.
const maxProductionSpan = 100

type yearSeasons struct{ year, seasons int }

// Builder is the single-pass fold state. Not safe for concurrent Add; each
// load owns its own Builder.
type Builder struct {
	byYear       map[int]int
	byYearSeason map[yearSeasons]int
	crewByYear   map[int]int
	inProduction map[int]int
	records      int
	skipped      int
}

// NewBuilder returns an empty fold.
func NewBuilder() *Builder {
	return &Builder{
		byYear:       make(map[int]int),
		byYearSeason: make(map[yearSeasons]int),
		crewByYear:   make(map[int]int),
		inProduction: make(map[int]int),
	}
}

// Record is the minimal shape the fold needs. It is field-identical to
// normalize.Record so callers convert directly; keeping the fold free of a
// normalize import lets tests feed it literal values.
type Record struct {
	Year      int
	YearKnown bool
	Seasons   int
	Crew      int
}

// Add folds one normalized record into the running aggregates.
func (b *Builder) Add(rec Record) {
	b.records++
	if !rec.YearKnown {
		b.skipped++
		return
	}

	b.byYear[rec.Year]++
	b.byYearSeason[yearSeasons{rec.Year, rec.Seasons}]++
	b.crewByYear[rec.Year] += rec.Crew

	seasons := rec.Seasons
	if seasons < 1 {
		seasons = 1
	}
	if seasons > maxProductionSpan {
		seasons = maxProductionSpan
	}
	for y := rec.Year; y < rec.Year+seasons; y++ {
		b.inProduction[y]++
	}
}

// Tables materializes the sorted aggregate tables. The Builder remains
// usable afterwards; calling Tables twice yields equal results.
func (b *Builder) Tables() Tables {
	t := Tables{
		ByYear:       sortedYearCounts(b.byYear),
		CrewByYear:   sortedYearCounts(b.crewByYear),
		InProduction: sortedYearCounts(b.inProduction),
		Records:      b.records,
		SkippedYear:  b.skipped,
	}

	t.ByYearSeason = make([]YearSeasonCount, 0, len(b.byYearSeason))
	for k, n := range b.byYearSeason {
		t.ByYearSeason = append(t.ByYearSeason, YearSeasonCount{Year: k.year, Seasons: k.seasons, Count: n})
	}
	sort.Slice(t.ByYearSeason, func(i, j int) bool {
		a, c := t.ByYearSeason[i], t.ByYearSeason[j]
		if a.Year != c.Year {
			return a.Year < c.Year
		}
		return a.Seasons < c.Seasons
	})

	return t
}

func sortedYearCounts(m map[int]int) []YearCount {
	out := make([]YearCount, 0, len(m))
	for y, n := range m {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
