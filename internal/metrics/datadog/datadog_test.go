package datadog

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"seriesstats/internal/metrics"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, nil
}

func (f *fakeSubmitter) all() []datadogV2.MetricPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datadogV2.MetricPayload(nil), f.payloads...)
}

func newTestBackend(t *testing.T) (*Backend, *fakeSubmitter) {
	t.Helper()
	fake := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:    "test-job",
		FlushEvery: time.Hour, // loop must not fire during the test
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		submitter:  fake,
	})
	require.NoError(t, err)
	return b, fake
}

func seriesByMetric(payloads []datadogV2.MetricPayload) map[string]datadogV2.MetricSeries {
	out := make(map[string]datadogV2.MetricSeries)
	for _, p := range payloads {
		for _, s := range p.Series {
			out[s.Metric] = s
		}
	}
	return out
}

func TestFlushSubmitsBufferedCounters(t *testing.T) {
	b, fake := newTestBackend(t)

	b.IncCounter(metrics.RecordsTotal, 10, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.RecordsTotal, 2, metrics.Labels{"kind": "skipped_year"})
	b.IncCounter(metrics.ExportRowsTotal, 7, metrics.Labels{"kind": "by_year"})

	require.NoError(t, b.Close())

	got := seriesByMetric(fake.all())
	rec, ok := got["seriesstats.records.total"]
	require.True(t, ok)
	assert.Contains(t, rec.Tags, "job:test-job")

	total := 0.0
	for _, p := range fake.all() {
		for _, s := range p.Series {
			if s.Metric == "seriesstats.records.total" {
				total += *s.Points[0].Value
			}
		}
	}
	assert.Equal(t, 17.0, total, "deltas for one metric accumulate across kinds")

	rows, ok := got["seriesstats.export.rows.total"]
	require.True(t, ok)
	assert.Equal(t, 7.0, *rows.Points[0].Value)
	assert.Contains(t, rows.Tags, "kind:by_year")
}

func TestFlushResetsBuffers(t *testing.T) {
	b, fake := newTestBackend(t)

	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "loaded"})
	require.NoError(t, b.Flush())
	require.Len(t, fake.all(), 1)

	// Nothing buffered: no payload submitted.
	require.NoError(t, b.Close())
	assert.Len(t, fake.all(), 1)
}

func TestIgnoredInputs(t *testing.T) {
	b, fake := newTestBackend(t)

	b.IncCounter(metrics.RecordsTotal, 0, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.RecordsTotal, -3, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.RecordsTotal, 4, nil) // no kind label
	b.IncCounter("unrelated_metric", 4, metrics.Labels{"kind": "loaded"})
	b.ObserveHistogram(metrics.LoadDurationSeconds, -1, metrics.Labels{"source": "file"})
	b.ObserveHistogram("unrelated_metric", 1, nil)

	require.NoError(t, b.Close())
	assert.Empty(t, fake.all())
}

func TestLoadDurationPercentiles(t *testing.T) {
	b, fake := newTestBackend(t)

	for _, v := range []float64{0.3, 0.1, 0.2, 0.9} {
		b.ObserveHistogram(metrics.LoadDurationSeconds, v, metrics.Labels{"source": "mongo"})
	}
	require.NoError(t, b.Close())

	got := seriesByMetric(fake.all())
	p50, ok := got["seriesstats.load.duration_seconds.p50"]
	require.True(t, ok)
	assert.Equal(t, 0.2, *p50.Points[0].Value)
	assert.Contains(t, p50.Tags, "source:mongo")

	max, ok := got["seriesstats.load.duration_seconds.max"]
	require.True(t, ok)
	assert.Equal(t, 0.9, *max.Points[0].Value)

	samples, ok := got["seriesstats.load.duration_seconds.samples"]
	require.True(t, ok)
	assert.Equal(t, 4.0, *samples.Points[0].Value)
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, 5.0, percentileNearestRank(sorted, 0.50))
	assert.Equal(t, 10.0, percentileNearestRank(sorted, 0.95))
	assert.Equal(t, 1.0, percentileNearestRank(sorted, 0.01))
	assert.Equal(t, 0.0, percentileNearestRank(nil, 0.5))
}

func TestTickerDrivesFlush(t *testing.T) {
	fake := &fakeSubmitter{}
	tick := make(chan time.Time)
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: time.Hour,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		newTicker: func(time.Duration) *time.Ticker {
			t := time.NewTicker(time.Hour)
			t.C = tick
			return t
		},
		submitter: fake,
	})
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "loaded"})
	tick <- time.Now()

	assert.Eventually(t, func() bool { return len(fake.all()) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, b.Close())
}
