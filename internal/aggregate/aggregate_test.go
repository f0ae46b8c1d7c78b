package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The reference scenario: three records, two years, mixed crew counts.
func scenarioRecords() []Record {
	return []Record{
		{Year: 2010, YearKnown: true, Seasons: 2, Crew: 1},
		{Year: 2010, YearKnown: true, Seasons: 1, Crew: 0},
		{Year: 2011, YearKnown: true, Seasons: 1, Crew: 2},
	}
}

func fold(recs []Record) Tables {
	b := NewBuilder()
	for _, r := range recs {
		b.Add(r)
	}
	return b.Tables()
}

func TestScenario(t *testing.T) {
	tables := fold(scenarioRecords())

	assert.Equal(t, []YearCount{{2010, 2}, {2011, 1}}, tables.ByYear)
	assert.Equal(t, []YearSeasonCount{
		{Year: 2010, Seasons: 1, Count: 1},
		{Year: 2010, Seasons: 2, Count: 1},
		{Year: 2011, Seasons: 1, Count: 1},
	}, tables.ByYearSeason)
	assert.Equal(t, []YearCount{{2010, 1}, {2011, 2}}, tables.CrewByYear)
	assert.Equal(t, 3, tables.Records)
	assert.Equal(t, 0, tables.SkippedYear)
}

func TestUnknownYearExcluded(t *testing.T) {
	recs := append(scenarioRecords(), Record{YearKnown: false, Seasons: 5, Crew: 9})
	tables := fold(recs)

	assert.Equal(t, []YearCount{{2010, 2}, {2011, 1}}, tables.ByYear,
		"unknown years must not appear as a sentinel bucket")
	assert.Equal(t, 4, tables.Records)
	assert.Equal(t, 1, tables.SkippedYear)

	for _, r := range tables.ByYearSeason {
		assert.NotEqual(t, 0, r.Year)
	}
}

func TestByYearTotalsMatchRecordCount(t *testing.T) {
	tables := fold(scenarioRecords())

	sum := 0
	for _, r := range tables.ByYear {
		sum += r.Count
	}
	assert.Equal(t, tables.Records-tables.SkippedYear, sum)
}

func TestByYearSeasonReproducesByYear(t *testing.T) {
	tables := fold(scenarioRecords())

	perYear := make(map[int]int)
	for _, r := range tables.ByYearSeason {
		perYear[r.Year] += r.Count
	}
	for _, r := range tables.ByYear {
		assert.Equal(t, r.Count, perYear[r.Year], "year %d", r.Year)
	}
}

func TestInProductionExpandsSeasons(t *testing.T) {
	// One 3-season series from 2010, one single-season from 2011:
	// 2010 has 1 in production, 2011 has 2, 2012 has 1.
	tables := fold([]Record{
		{Year: 2010, YearKnown: true, Seasons: 3, Crew: 0},
		{Year: 2011, YearKnown: true, Seasons: 1, Crew: 0},
	})

	assert.Equal(t, []YearCount{{2010, 1}, {2011, 2}, {2012, 1}}, tables.InProduction)
}

func TestInProductionCapsRunawaySeasons(t *testing.T) {
	tables := fold([]Record{
		{Year: 2010, YearKnown: true, Seasons: 5000000, Crew: 0},
	})

	require.Len(t, tables.InProduction, maxProductionSpan,
		"one record must not expand past the production span cap")
	assert.Equal(t, 2010, tables.InProduction[0].Year)
	assert.Equal(t, 2010+maxProductionSpan-1, tables.InProduction[len(tables.InProduction)-1].Year)
}

func TestOrderIndependence(t *testing.T) {
	recs := make([]Record, 0, 200)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		recs = append(recs, Record{
			Year:      2000 + rng.Intn(20),
			YearKnown: rng.Intn(10) != 0,
			Seasons:   1 + rng.Intn(5),
			Crew:      rng.Intn(7),
		})
	}

	want := fold(recs)

	shuffled := append([]Record(nil), recs...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got := fold(shuffled)

	assert.Equal(t, want, got, "aggregation must not depend on input order")
}

func TestKeysStrictlyAscending(t *testing.T) {
	tables := fold(scenarioRecords())

	for i := 1; i < len(tables.ByYear); i++ {
		require.Less(t, tables.ByYear[i-1].Year, tables.ByYear[i].Year)
	}
	for i := 1; i < len(tables.ByYearSeason); i++ {
		a, b := tables.ByYearSeason[i-1], tables.ByYearSeason[i]
		require.True(t, a.Year < b.Year || (a.Year == b.Year && a.Seasons < b.Seasons))
	}
}

func TestEmptyInput(t *testing.T) {
	tables := fold(nil)

	assert.Empty(t, tables.ByYear)
	assert.Empty(t, tables.ByYearSeason)
	assert.Empty(t, tables.CrewByYear)
	assert.Empty(t, tables.InProduction)
	assert.True(t, tables.Empty())
	assert.Equal(t, 0, tables.Records)
}

func TestTablesIsRepeatable(t *testing.T) {
	b := NewBuilder()
	for _, r := range scenarioRecords() {
		b.Add(r)
	}
	assert.Equal(t, b.Tables(), b.Tables())
}
