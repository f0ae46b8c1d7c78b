// Package session owns the lifecycle of loaded data: each load streams raw
// records through normalize → aggregate in one pass and produces an
// immutable Snapshot; the active snapshot is swapped atomically, so
// concurrent "load" triggers resolve to last-load-wins, never a merge.
//
// Exports read from the active snapshot only. Whatever tables the front end
// is currently charting are the exact tables an export serializes.
package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"seriesstats/internal/aggregate"
	"seriesstats/internal/export"
	"seriesstats/internal/metrics"
	"seriesstats/internal/normalize"
	"seriesstats/internal/source"
)

// Snapshot is the immutable result of one load.
type Snapshot struct {
	ID         uuid.UUID        `json:"id"`
	Job        string           `json:"job"`
	SourceKind string           `json:"source_kind"`
	LoadedAt   time.Time        `json:"loaded_at"`
	Tables     aggregate.Tables `json:"tables"`
}

// Session holds the active snapshot for one configured job.
type Session struct {
	job string
	cur atomic.Pointer[Snapshot]
}

// New returns a Session with no data loaded.
func New(job string) *Session {
	return &Session{job: job}
}

// Load runs one full pass: stream records from src, normalize with n, fold
// into aggregate tables, then swap the result in as the active snapshot.
//
// On any stream error the fold is discarded and the previous snapshot
// stays active; a failed load never leaves the charts half-updated.
// sourceKind is carried into the snapshot and metric labels.
func (s *Session) Load(ctx context.Context, sourceKind string, src source.Source, n *normalize.Normalizer) (*Snapshot, error) {
	start := time.Now()

	stream, err := src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: start stream: %w", err)
	}

	b := aggregate.NewBuilder()
	for raw := range stream.C {
		b.Add(aggregate.Record(n.Normalize(raw)))
	}
	if err := stream.Wait(); err != nil {
		return nil, fmt.Errorf("session: stream: %w", err)
	}

	tables := b.Tables()
	snap := &Snapshot{
		ID:         uuid.New(),
		Job:        s.job,
		SourceKind: sourceKind,
		LoadedAt:   time.Now().UTC(),
		Tables:     tables,
	}
	s.cur.Store(snap)

	loaded := tables.Records - tables.SkippedYear
	metrics.IncCounter(metrics.RecordsTotal, float64(loaded), metrics.Labels{"kind": "loaded"})
	metrics.IncCounter(metrics.RecordsTotal, float64(tables.SkippedYear), metrics.Labels{"kind": "skipped_year"})
	metrics.ObserveHistogram(metrics.LoadDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"source": sourceKind})

	return snap, nil
}

// Current returns the active snapshot, or nil before the first successful
// load.
func (s *Session) Current() *Snapshot {
	return s.cur.Load()
}

// Tables returns the active snapshot's aggregate tables.
func (s *Session) Tables() (aggregate.Tables, error) {
	snap := s.cur.Load()
	if snap == nil {
		return aggregate.Tables{}, export.ErrNoData
	}
	return snap.Tables, nil
}

// Export formats one table of the active snapshot. Returns export.ErrNoData
// before the first successful load.
func (s *Session) Export(kind export.Kind) (export.Table, error) {
	snap := s.cur.Load()
	if snap == nil {
		return export.Table{}, export.ErrNoData
	}
	t, err := export.Format(snap.Tables, kind)
	if err != nil {
		return export.Table{}, err
	}
	metrics.IncCounter(metrics.ExportRowsTotal, float64(len(t.Rows)), metrics.Labels{"kind": string(kind)})
	return t, nil
}
