// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package. Unlike the datadog backend it keeps no private
// buffers: prometheus collectors already accumulate, so Flush just pushes
// the registry's current state.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"seriesstats/internal/metrics"
)

// Backend implements metrics.Backend against a Pushgateway.
type Backend struct {
	pusher *push.Pusher

	records    *prometheus.CounterVec
	exportRows *prometheus.CounterVec
	loadDur    *prometheus.HistogramVec
}

// NewBackend builds the collector set and a pusher targeting gatewayURL.
// No network traffic happens until the first Flush.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if job == "" {
		return nil, fmt.Errorf("prompush: job name is required")
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}

	reg := prometheus.NewRegistry()

	b := &Backend{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Raw records folded per load, by outcome kind.",
		}, []string{"kind"}),
		exportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ExportRowsTotal,
			Help: "Rows written per export, by export kind.",
		}, []string{"kind"}),
		loadDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.LoadDurationSeconds,
			Help:    "Wall time of one full load pass, by source kind.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"source"}),
	}

	reg.MustRegister(b.records, b.exportRows, b.loadDur)
	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.RecordsTotal:
		b.records.WithLabelValues(orUnknown(labels["kind"])).Add(delta)
	case metrics.ExportRowsTotal:
		b.exportRows.WithLabelValues(orUnknown(labels["kind"])).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	if name == metrics.LoadDurationSeconds {
		b.loadDur.WithLabelValues(orUnknown(labels["source"])).Observe(value)
	}
}

// Flush pushes the registry state to the gateway, replacing the job's
// previous push (Pushgateway semantics).
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

// Close performs a final Flush. There is no background loop to stop.
func (b *Backend) Close() error { return b.Flush() }

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
