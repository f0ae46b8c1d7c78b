// Package fieldset resolves the externally configured list of crew field
// names into an order-preserving, deduplicated Selection.
//
// The configuration is a plain text source with one field name per line.
// Historically it was a one-column CSV named keys_to_consider.csv, so a
// leading "keys_to_consider" header line is tolerated and skipped.
//
// An empty source is a hard error, never an empty Selection: silently
// treating every record as zero-crew would corrupt the crew aggregate with
// no visible signal. Callers that genuinely want year/season charts without
// crew data must opt in explicitly (see Empty).
package fieldset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

// ErrNoFields signals a missing or empty field configuration source.
var ErrNoFields = errors.New("fieldset: no field names in source")

// legacyHeader is the column header of the original configuration CSV.
const legacyHeader = "keys_to_consider"

// Selection is an ordered set of crew field names. Names are unique,
// case-sensitive and non-empty; iteration order is first-seen order.
// The zero value is an empty selection.
type Selection struct {
	names []string
	index map[string]struct{}
}

// Empty returns an explicitly empty Selection. It exists so that "run the
// year/season aggregates without crew data" is a visible decision at the
// call site rather than a silent fallback.
func Empty() Selection {
	return Selection{index: map[string]struct{}{}}
}

// Load reads field names from r, one per line.
//
// Blank and all-whitespace lines are discarded, duplicates are collapsed to
// the first occurrence, and names are NFC-normalized so that visually
// identical names from differently composed sources compare equal.
//
// Returns ErrNoFields when the source yields no names at all.
func Load(r io.Reader) (Selection, error) {
	return load(r, true)
}

// load scans names from r. skipHeader enables the legacy CSV header skip;
// it applies only to file-shaped sources, inline names are all data.
func load(r io.Reader, skipHeader bool) (Selection, error) {
	sel := Selection{index: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
			if skipHeader && strings.TrimSpace(line) == legacyHeader {
				continue
			}
		}
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		name = norm.NFC.String(name)
		if _, dup := sel.index[name]; dup {
			continue
		}
		sel.index[name] = struct{}{}
		sel.names = append(sel.names, name)
	}
	if err := sc.Err(); err != nil {
		return Selection{}, fmt.Errorf("fieldset: read source: %w", err)
	}
	if len(sel.names) == 0 {
		return Selection{}, ErrNoFields
	}
	return sel, nil
}

// LoadFile opens path and loads it via Load.
//
// enc names the file's character encoding ("utf-8", "iso-8859-1",
// "windows-1252", ...; any name htmlindex resolves). Empty means UTF-8.
func LoadFile(path, enc string) (Selection, error) {
	f, err := os.Open(path)
	if err != nil {
		return Selection{}, fmt.Errorf("fieldset: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if enc != "" && !strings.EqualFold(enc, "utf-8") {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return Selection{}, fmt.Errorf("fieldset: unknown encoding %q: %w", enc, err)
		}
		r = e.NewDecoder().Reader(f)
	}
	return Load(r)
}

// FromNames builds a Selection from an in-config list of names, applying the
// same trimming, normalization and dedupe rules as Load. No header skip:
// inline names are data, even one spelled like the legacy header.
func FromNames(names []string) (Selection, error) {
	if len(names) == 0 {
		return Selection{}, ErrNoFields
	}
	return load(strings.NewReader(strings.Join(names, "\n")), false)
}

// Names returns the selected field names in first-seen order. The returned
// slice is a copy.
func (s Selection) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Contains reports whether name is part of the selection (case-sensitive).
func (s Selection) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of selected fields.
func (s Selection) Len() int { return len(s.names) }
