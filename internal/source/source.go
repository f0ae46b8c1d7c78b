// Package source abstracts where raw series records come from.
//
// The core pipeline only needs "a stream of raw mappings"; everything about
// wire protocols lives in the backend packages. Backends register themselves
// under a kind string from init(), and callers construct them through New.
// Import seriesstats/internal/source/all to link every backend in.
package source

import (
	"context"
	"fmt"
	"sync"

	"seriesstats/internal/records"
)

// Config selects and parameterizes a backend. Fields are a union across
// backends; each backend validates the subset it needs.
type Config struct {
	// Kind names a registered backend: "mongo", "postgres", "sqlite",
	// "mssql", "file", "html".
	Kind string `json:"kind"`

	// DSN is the connection string for database-backed kinds. Environment
	// references ($VAR) are expanded by the CLI before construction.
	DSN string `json:"dsn,omitempty"`

	// Database and Collection address a mongo namespace.
	Database   string `json:"database,omitempty"`
	Collection string `json:"collection,omitempty"`

	// Table and Column address a SQL relation holding one JSON document
	// per row. Column defaults to "doc".
	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`

	// Path is the input file for the file and html kinds.
	Path string `json:"path,omitempty"`

	// Format disambiguates file content ("json", "jsonl", "csv"). Empty
	// means inferred from the path extension.
	Format string `json:"format,omitempty"`

	// Comma is the CSV delimiter for the file kind ("," when empty).
	Comma string `json:"comma,omitempty"`

	// RecordSelector and Fields drive the html kind: one raw record per
	// element matched by RecordSelector, with field values extracted by
	// the per-field selectors relative to that element.
	RecordSelector string      `json:"record_selector,omitempty"`
	Fields         []FieldRule `json:"fields,omitempty"`
}

// FieldRule maps one extracted HTML value into a raw record field.
type FieldRule struct {
	// Name is the output field name in the raw record.
	Name string `json:"name"`
	// Selector is evaluated relative to the record container.
	Selector string `json:"selector"`
	// Attr extracts an attribute instead of text content when non-empty.
	Attr string `json:"attr,omitempty"`
	// All collects every match into a list instead of the first match.
	All bool `json:"all,omitempty"`
}

// Source yields raw records. Implementations must be safe for sequential
// reuse: Records may be called again after a previous stream is drained.
type Source interface {
	// Records starts one streaming read. The returned stream's channel is
	// closed when the read completes; Wait reports the terminal error.
	Records(ctx context.Context) (*Stream, error)

	// Close releases backend resources. Call once, after the last stream.
	Close() error
}

// Stream is a channel of raw records plus completion semantics, so callers
// can fold records as they arrive and still learn about a mid-stream
// failure afterwards.
//
// Contract: read C until closed, then call Wait exactly once.
type Stream struct {
	C    <-chan records.Raw
	wait func() error
}

// NewStream packages a channel and completion func for backends.
func NewStream(c <-chan records.Raw, wait func() error) *Stream {
	if wait == nil {
		wait = func() error { return nil }
	}
	return &Stream{C: c, wait: wait}
}

// Wait blocks until the producing goroutine has finished and returns its
// terminal error, if any.
func (s *Stream) Wait() error { return s.wait() }

// Factory builds a Source from a Config.
type Factory func(ctx context.Context, cfg Config) (Source, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under kind. Backends call this from init().
//
// Panics on empty kind, nil factory, or duplicate registration: backend
// selection must never be ambiguous, so we fail fast at link time.
func Register(kind string, f Factory) {
	if kind == "" {
		panic("source: Register with empty kind")
	}
	if f == nil {
		panic("source: Register with nil factory for kind " + kind)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("source: Register called twice for kind " + kind)
	}
	factories[kind] = f
}

// New constructs the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Source, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source: unsupported kind %q (is the backend package imported?)", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for diagnostics.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
