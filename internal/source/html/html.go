// Package html implements a record source over an HTML document: one raw
// record per element matched by a record selector, with field values pulled
// out by per-field selectors relative to that element.
//
// This exists for datasets that are only published as rendered tables or
// card lists. Extraction is resilient: a field whose selector matches
// nothing simply stays absent from the record.
package html

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"seriesstats/internal/records"
	"seriesstats/internal/source"
)

func init() {
	source.Register("html", New)
}

// New validates cfg and returns an HTML source.
func New(_ context.Context, cfg source.Config) (source.Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("html: path is required")
	}
	if cfg.RecordSelector == "" {
		return nil, fmt.Errorf("html: record_selector is required")
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("html: at least one field rule is required")
	}
	for i, fr := range cfg.Fields {
		if fr.Name == "" || fr.Selector == "" {
			return nil, fmt.Errorf("html: field rule %d needs name and selector", i)
		}
	}
	return &src{path: cfg.Path, recordSel: cfg.RecordSelector, fields: cfg.Fields}, nil
}

type src struct {
	path      string
	recordSel string
	fields    []source.FieldRule
}

func (s *src) Close() error { return nil }

// Records parses the document and streams one record per matched container
// in DOM order. goquery needs the full DOM in memory, so "streaming" here
// bounds only the record channel, not the parse.
func (s *src) Records(ctx context.Context) (*source.Stream, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("html: open %s: %w", s.path, err)
	}
	doc, err := goquery.NewDocumentFromReader(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("html: parse %s: %w", s.path, err)
	}

	ch := make(chan records.Raw, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(ch)

		var streamErr error
		doc.Find(s.recordSel).EachWithBreak(func(_ int, container *goquery.Selection) bool {
			rec := s.extract(container)
			select {
			case ch <- rec:
				return true
			case <-ctx.Done():
				streamErr = ctx.Err()
				return false
			}
		})
		errc <- streamErr
	}()

	return source.NewStream(ch, func() error { return <-errc }), nil
}

func (s *src) extract(container *goquery.Selection) records.Raw {
	rec := make(records.Raw, len(s.fields))
	for _, fr := range s.fields {
		matches := container.Find(fr.Selector)
		if matches.Length() == 0 {
			continue
		}

		if fr.All {
			var vals []any
			matches.Each(func(_ int, m *goquery.Selection) {
				if v, ok := extractOne(m, fr.Attr); ok {
					vals = append(vals, v)
				}
			})
			if len(vals) > 0 {
				rec[fr.Name] = vals
			}
			continue
		}

		if v, ok := extractOne(matches.First(), fr.Attr); ok {
			rec[fr.Name] = v
		}
	}
	return rec
}

func extractOne(m *goquery.Selection, attr string) (string, bool) {
	if attr != "" {
		v, ok := m.Attr(attr)
		return strings.TrimSpace(v), ok
	}
	v := strings.TrimSpace(m.Text())
	return v, v != ""
}
