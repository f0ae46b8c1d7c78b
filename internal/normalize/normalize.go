// Package normalize converts raw, schema-less records into the typed
// intermediate representation the aggregation fold consumes.
//
// Normalization never fails. Malformed values degrade to defaults plus a
// validity flag, so one bad record can never abort a load: a year outside
// the sane bounds leaves the record structurally intact but excluded from
// the year-keyed aggregates.
package normalize

import (
	"fmt"
	"time"

	"seriesstats/internal/fieldset"
	"seriesstats/internal/records"
)

// Default field names in the source collection.
const (
	DefaultYearField    = "year"
	DefaultSeasonsField = "number of seasons"
)

// Year sanity bounds. Anything outside is treated as unknown rather than
// wrong: the charts should survive a dataset with a few mistyped entries.
const (
	DefaultMinYear      = 1800
	defaultMaxYearSlack = 5
)

// DefaultMaxSeasons bounds what counts as a plausible season count. Values
// above it are data defects and fall back to the default of 1; the
// in-production expansion walks one year per season, so an unbounded count
// would let a single record dominate a whole load.
const DefaultMaxSeasons = 100

// CrewMode selects how the crew count of a record is computed. The crew
// metric is an approximation either way; which approximation is a product
// decision, so it is an explicit named choice instead of a hard-coded one.
type CrewMode string

const (
	// CountFields counts how many of the selected crew fields are present
	// and non-empty. "Crew size" here means "number of distinct crew-role
	// fields populated", not a headcount.
	CountFields CrewMode = "fields"

	// CountEntries sums the lengths of list-valued crew fields, matching
	// the original store-side aggregation: a record with 3 directors and
	// 2 writers counts 5. Non-list values contribute nothing.
	CountEntries CrewMode = "entries"
)

// Valid reports whether m is a known mode. The empty string is accepted and
// means CountFields.
func (m CrewMode) Valid() bool {
	return m == "" || m == CountFields || m == CountEntries
}

// Options control field lookup and crew counting.
type Options struct {
	// YearField is the raw field holding the production year.
	// Empty means DefaultYearField.
	YearField string

	// SeasonsField is the raw field holding the season count.
	// Empty means DefaultSeasonsField.
	SeasonsField string

	// MinYear/MaxYear bound what counts as a known year. Zero values mean
	// DefaultMinYear and the current year plus a small slack.
	MinYear int
	MaxYear int

	// MaxSeasons bounds what counts as a usable season count; larger values
	// fall back to the default of 1. Zero means DefaultMaxSeasons.
	MaxSeasons int

	// CrewMode selects the crew counting policy. Empty means CountFields.
	CrewMode CrewMode
}

func (o Options) yearField() string {
	if o.YearField == "" {
		return DefaultYearField
	}
	return o.YearField
}

func (o Options) seasonsField() string {
	if o.SeasonsField == "" {
		return DefaultSeasonsField
	}
	return o.SeasonsField
}

func (o Options) maxSeasons() int {
	if o.MaxSeasons == 0 {
		return DefaultMaxSeasons
	}
	return o.MaxSeasons
}

func (o Options) bounds() (int, int) {
	lo, hi := o.MinYear, o.MaxYear
	if lo == 0 {
		lo = DefaultMinYear
	}
	if hi == 0 {
		hi = time.Now().Year() + defaultMaxYearSlack
	}
	return lo, hi
}

// Validate returns an error for option combinations that cannot produce a
// meaningful normalization. Zero values are always valid.
func (o Options) Validate() error {
	if !o.CrewMode.Valid() {
		return fmt.Errorf("normalize: unknown crew mode %q", o.CrewMode)
	}
	lo, hi := o.bounds()
	if lo > hi {
		return fmt.Errorf("normalize: min year %d above max year %d", lo, hi)
	}
	if o.MaxSeasons < 0 {
		return fmt.Errorf("normalize: negative max seasons %d", o.MaxSeasons)
	}
	return nil
}

// Record is the typed, immutable normalization result.
type Record struct {
	// Year is the production year, or 0 when unknown.
	Year int

	// YearKnown is false when the year field was absent, not coercible to
	// an integer, or out of bounds. Such records are excluded from the
	// year-keyed aggregates but still counted as seen.
	YearKnown bool

	// Seasons is the season count, defaulted to 1: a series is assumed
	// single-season unless the record says otherwise. Non-positive and
	// implausibly large values (above Options.MaxSeasons) also default
	// to 1.
	Seasons int

	// Crew is the crew count under the configured CrewMode.
	Crew int
}

// Normalizer applies one resolved Options + Selection pair to many raw
// records. The selection is captured once at construction; per-record work
// allocates nothing.
type Normalizer struct {
	yearField    string
	seasonsField string
	minYear      int
	maxYear      int
	maxSeasons   int
	mode         CrewMode
	crewFields   []string
}

// New builds a Normalizer. It fails only on invalid Options; an empty
// Selection is legal here (the opt-in for crew-less aggregation is decided
// by the caller, see fieldset.Empty).
func New(sel fieldset.Selection, opts Options) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	mode := opts.CrewMode
	if mode == "" {
		mode = CountFields
	}
	lo, hi := opts.bounds()
	return &Normalizer{
		yearField:    opts.yearField(),
		seasonsField: opts.seasonsField(),
		minYear:      lo,
		maxYear:      hi,
		maxSeasons:   opts.maxSeasons(),
		mode:         mode,
		crewFields:   sel.Names(),
	}, nil
}

// Normalize derives a Record from raw. It never fails; see the package
// comment for the defaulting rules.
func (n *Normalizer) Normalize(raw records.Raw) Record {
	rec := Record{Seasons: 1}

	if y, ok := records.Int(raw[n.yearField]); ok && y >= n.minYear && y <= n.maxYear {
		rec.Year = y
		rec.YearKnown = true
	}

	if s, ok := records.Int(raw[n.seasonsField]); ok && s > 0 && s <= n.maxSeasons {
		rec.Seasons = s
	}

	for _, name := range n.crewFields {
		v, ok := raw[name]
		if !ok || records.IsEmpty(v) {
			continue
		}
		if n.mode == CountEntries {
			rec.Crew += records.ListLen(v)
		} else {
			rec.Crew++
		}
	}

	return rec
}
