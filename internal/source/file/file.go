// Package file implements the file-backed record source. It streams JSON
// (array, envelope, or JSONL) and headered CSV without materializing the
// whole input.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"seriesstats/internal/records"
	"seriesstats/internal/source"
)

func init() {
	source.Register("file", New)
}

// New validates cfg and returns a file source. The file itself is opened
// per stream, so one source can be re-read.
func New(_ context.Context, cfg source.Config) (source.Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file: path is required")
	}

	format := cfg.Format
	if format == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".json":
			format = "json"
		case ".jsonl", ".ndjson":
			format = "jsonl"
		case ".csv":
			format = "csv"
		default:
			return nil, fmt.Errorf("file: cannot infer format from %q; set format explicitly", cfg.Path)
		}
	}
	switch format {
	case "json", "jsonl", "csv":
	default:
		return nil, fmt.Errorf("file: unsupported format %q", format)
	}

	comma := ','
	if cfg.Comma != "" {
		r := []rune(cfg.Comma)
		if len(r) != 1 {
			return nil, fmt.Errorf("file: comma must be a single character, got %q", cfg.Comma)
		}
		comma = r[0]
	}

	return &src{path: cfg.Path, format: format, comma: comma}, nil
}

type src struct {
	path   string
	format string
	comma  rune
}

func (s *src) Close() error { return nil }

func (s *src) Records(ctx context.Context) (*source.Stream, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", s.path, err)
	}

	ch := make(chan records.Raw, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(ch)
		defer f.Close()

		var err error
		switch s.format {
		case "csv":
			err = streamCSV(ctx, f, s.comma, ch)
		default:
			err = streamJSON(ctx, f, ch)
		}
		errc <- err
	}()

	return source.NewStream(ch, func() error { return <-errc }), nil
}

// streamJSON emits one record per object. Accepted layouts, all streamed
// without buffering the document:
//   - a root array of objects
//   - a root object whose first array-of-objects field holds the records
//     (envelope), remaining envelope fields ignored
//   - bare concatenated objects (JSONL)
//
// Numbers decode as json.Number so integer years survive intact.
func streamJSON(ctx context.Context, r io.Reader, out chan<- records.Raw) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	emit := func(obj map[string]any) error {
		select {
		case out <- obj:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("file: read first json token: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("file: json root must be an object or array, got %T", tok)
	}

	switch delim {
	case '[':
		if err := decodeArrayElements(ctx, dec, emit); err != nil {
			return err
		}
		if _, err := dec.Token(); err != nil { // closing ']'
			return fmt.Errorf("file: read array end: %w", err)
		}
		return decodeTrailing(dec, emit)

	case '{':
		streamed, single, err := decodeEnvelope(ctx, dec, emit)
		if err != nil {
			return err
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return fmt.Errorf("file: read object end: %w", err)
		}
		if !streamed {
			if err := emit(single); err != nil {
				return err
			}
		}
		return decodeTrailing(dec, emit)

	default:
		return fmt.Errorf("file: unexpected json delimiter %q", delim)
	}
}

func decodeArrayElements(ctx context.Context, dec *json.Decoder, emit func(map[string]any) error) error {
	for dec.More() {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return fmt.Errorf("file: decode array element: %w", err)
		}
		if obj == nil {
			continue
		}
		if err := emit(obj); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// decodeEnvelope walks a root object with the document decoder. The first
// array-valued field is streamed element by element as the record list;
// other fields collect into a single-record map in case no such field
// exists. Nothing is buffered beyond one record.
func decodeEnvelope(ctx context.Context, dec *json.Decoder, emit func(map[string]any) error) (streamed bool, single map[string]any, _ error) {
	single = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("file: read envelope key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return false, nil, fmt.Errorf("file: envelope key not a string: %T", keyTok)
		}

		tok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("file: read envelope value for %q: %w", key, err)
		}

		if delim, isDelim := tok.(json.Delim); isDelim && delim == '[' && !streamed {
			if err := decodeArrayElements(ctx, dec, emit); err != nil {
				return false, nil, err
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return false, nil, fmt.Errorf("file: read envelope array end: %w", err)
			}
			streamed = true
			continue
		}

		v, err := decodeValue(dec, tok)
		if err != nil {
			return false, nil, fmt.Errorf("file: decode envelope value for %q: %w", key, err)
		}
		single[key] = v
	}

	return streamed, single, nil
}

// decodeValue reassembles one JSON value whose first token has already been
// consumed from the stream. Composites are walked recursively; scalars come
// back as the decoder produced them (json.Number for numbers).
func decodeValue(dec *json.Decoder, tok json.Token) (any, error) {
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := make(map[string]any)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key not a string: %T", keyTok)
			}
			valTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec, valTok)
			if err != nil {
				return nil, err
			}
			obj[key] = v
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, err
		}
		return obj, nil

	case '[':
		var arr []any
		for dec.More() {
			valTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec, valTok)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil { // closing ']'
			return nil, err
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

func decodeTrailing(dec *json.Decoder, emit func(map[string]any) error) error {
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("file: decode trailing object: %w", err)
		}
		if obj == nil {
			continue
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
}
