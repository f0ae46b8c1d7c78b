// Package metrics defines the minimal metrics surface the pipeline emits
// through. The core depends only on Backend; concrete backends (datadog,
// prompush) live in subpackages and are wired by the CLI.
//
// The default backend is a nop, so library code can emit unconditionally.
package metrics

import "sync"

// Canonical metric names. Backends translate these to their own naming
// conventions; unknown names are ignored.
const (
	// RecordsTotal counts raw records folded per load.
	// Labels: kind = "loaded" | "skipped_year".
	RecordsTotal = "series_records_total"

	// ExportRowsTotal counts rows written per export.
	// Labels: kind = export kind.
	ExportRowsTotal = "series_export_rows_total"

	// LoadDurationSeconds observes wall time of one full load pass.
	// Labels: source = source kind.
	LoadDurationSeconds = "series_load_duration_seconds"
)

// Labels are metric dimension values keyed by dimension name.
type Labels map[string]string

// Backend is implemented by metric sinks.
//
// Implementations must tolerate concurrent calls from pipeline goroutines
// and must never block the hot path on network I/O; buffer and flush.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered metrics now.
	Flush() error

	// Close stops background work and performs a final Flush.
	Close() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide sink. Call once at startup,
// before any pipeline work.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error { return current().Flush() }

// Close closes the installed backend.
func Close() error { return current().Close() }
