package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seriesstats/internal/fieldset"
	"seriesstats/internal/normalize"
	"seriesstats/internal/records"
	"seriesstats/internal/session"
	"seriesstats/internal/source"
)

type sliceSource struct {
	recs []records.Raw
	fail error
}

func (s *sliceSource) Records(ctx context.Context) (*source.Stream, error) {
	ch := make(chan records.Raw)
	go func() {
		defer close(ch)
		for _, r := range s.recs {
			ch <- r
		}
	}()
	return source.NewStream(ch, func() error { return s.fail }), nil
}

func (s *sliceSource) Close() error { return nil }

func testServer(t *testing.T, src source.Source) (*Server, *session.Session) {
	t.Helper()

	sel, err := fieldset.FromNames([]string{"director", "writer"})
	require.NoError(t, err)
	n, err := normalize.New(sel, normalize.Options{})
	require.NoError(t, err)

	sess := session.New("tv")
	var load LoadFunc
	if src != nil {
		load = func(ctx context.Context) (*session.Snapshot, error) {
			return sess.Load(ctx, "file", src, n)
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, sess, load), sess
}

func loadedServer(t *testing.T) *Server {
	t.Helper()
	srv, _ := testServer(t, &sliceSource{recs: []records.Raw{
		{"year": 2010, "number of seasons": 2, "director": "Lynch"},
		{"year": 2010},
		{"year": 2011, "director": "A", "writer": "B"},
	}})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEndpointsBeforeFirstLoad(t *testing.T) {
	srv, _ := testServer(t, nil)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/snapshot").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/aggregates/by_year").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/export/by_year").Code)
}

func TestLoadNotConfigured(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestLoadAndSnapshot(t *testing.T) {
	srv := loadedServer(t)

	rec := get(t, srv, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Job     string `json:"job"`
		Records int    `json:"records"`
		Skipped int    `json:"skipped_year"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "tv", got.Job)
	assert.Equal(t, 3, got.Records)
	assert.Equal(t, 0, got.Skipped)
}

func TestLoadFailureKeepsServing(t *testing.T) {
	srv, sess := testServer(t, &sliceSource{fail: errors.New("connection reset")})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, sess.Current())
}

func TestAggregatesJSON(t *testing.T) {
	srv := loadedServer(t)

	rec := get(t, srv, "/api/aggregates/by_year")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"year":2010,"count":2},{"year":2011,"count":1}]`, rec.Body.String())

	rec = get(t, srv, "/api/aggregates/crew_by_year")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"year":2010,"count":1},{"year":2011,"count":2}]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/aggregates/by_decade").Code)
}

func TestExportCSV(t *testing.T) {
	srv := loadedServer(t)

	rec := get(t, srv, "/api/export/by_year")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=by_year.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "year,count\n2010,2\n2011,1\n", rec.Body.String())
}

func TestExportXLSX(t *testing.T) {
	srv := loadedServer(t)

	rec := get(t, srv, "/api/export/summary?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=summary.xlsx", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExportBadRequests(t *testing.T) {
	srv := loadedServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/export/by_decade").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/export/by_year?format=pdf").Code)
}
