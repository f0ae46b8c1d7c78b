package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
	closed     int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (r *recordingBackend) IncCounter(name string, delta float64, _ Labels) {
	r.counters[name] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, _ Labels) {
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *recordingBackend) Flush() error { r.flushed++; return nil }
func (r *recordingBackend) Close() error { r.closed++; return nil }

func TestPackageFuncsDispatchToBackend(t *testing.T) {
	rec := newRecordingBackend()
	SetBackend(rec)
	defer SetBackend(nil)

	IncCounter(RecordsTotal, 3, Labels{"kind": "loaded"})
	IncCounter(RecordsTotal, 2, Labels{"kind": "loaded"})
	ObserveHistogram(LoadDurationSeconds, 0.25, Labels{"source": "file"})
	assert.NoError(t, Flush())
	assert.NoError(t, Close())

	assert.Equal(t, 5.0, rec.counters[RecordsTotal])
	assert.Equal(t, []float64{0.25}, rec.histograms[LoadDurationSeconds])
	assert.Equal(t, 1, rec.flushed)
	assert.Equal(t, 1, rec.closed)
}

func TestNilBackendResetsToNop(t *testing.T) {
	SetBackend(nil)

	// Must not panic and must not error.
	IncCounter(ExportRowsTotal, 1, nil)
	ObserveHistogram(LoadDurationSeconds, 1, nil)
	assert.NoError(t, Flush())
	assert.NoError(t, Close())
}
