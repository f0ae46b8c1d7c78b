// Package server exposes the aggregate tables and exports over HTTP. It is
// the display front end's boundary: charts render from the JSON aggregate
// endpoints, and the export endpoints serialize the very snapshot those
// charts came from.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"seriesstats/internal/export"
	"seriesstats/internal/session"
)

// LoadFunc triggers one load pass and returns the new active snapshot.
// The CLI wires this to the configured source + normalizer; the server
// itself never touches connection details.
type LoadFunc func(ctx context.Context) (*session.Snapshot, error)

// Server handles the HTTP API for one session.
type Server struct {
	log  *slog.Logger
	sess *session.Session
	load LoadFunc
}

// New builds a Server. log must be non-nil.
func New(log *slog.Logger, sess *session.Session, load LoadFunc) *Server {
	return &Server{log: log, sess: sess, load: load}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/load", s.handleLoad)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/aggregates/{kind}", s.handleAggregates)
		r.Get("/export/{kind}", s.handleExport)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.log.Info("http request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(req.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	render.JSON(w, req, map[string]string{"status": "ok"})
}

// handleLoad triggers a fresh load. Concurrent calls are safe: each builds
// its own snapshot and the last successful swap wins.
func (s *Server) handleLoad(w http.ResponseWriter, req *http.Request) {
	if s.load == nil {
		s.renderError(w, req, http.StatusNotImplemented, "loading is not configured")
		return
	}
	snap, err := s.load(req.Context())
	if err != nil {
		s.log.Error("load failed", slog.String("error", err.Error()))
		s.renderError(w, req, http.StatusBadGateway, fmt.Sprintf("load failed: %v", err))
		return
	}
	render.Status(req, http.StatusCreated)
	render.JSON(w, req, snapshotInfo(snap))
}

// handleSnapshot reports what is currently loaded, without table bodies.
func (s *Server) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	snap := s.sess.Current()
	if snap == nil {
		s.renderError(w, req, http.StatusNotFound, "no data loaded")
		return
	}
	render.JSON(w, req, snapshotInfo(snap))
}

// handleAggregates serves one aggregate table as JSON rows for charting.
func (s *Server) handleAggregates(w http.ResponseWriter, req *http.Request) {
	tables, err := s.sess.Tables()
	if err != nil {
		s.renderError(w, req, http.StatusNotFound, "no data loaded")
		return
	}

	switch chi.URLParam(req, "kind") {
	case string(export.KindByYear):
		render.JSON(w, req, tables.ByYear)
	case string(export.KindByYearSeason):
		render.JSON(w, req, tables.ByYearSeason)
	case string(export.KindCrewByYear):
		render.JSON(w, req, tables.CrewByYear)
	case string(export.KindInProduction):
		render.JSON(w, req, tables.InProduction)
	default:
		s.renderError(w, req, http.StatusBadRequest, fmt.Sprintf("unknown aggregate kind %q", chi.URLParam(req, "kind")))
	}
}

// handleExport streams the WYSIWYG export of the active snapshot.
func (s *Server) handleExport(w http.ResponseWriter, req *http.Request) {
	kind, err := export.ParseKind(chi.URLParam(req, "kind"))
	if err != nil {
		s.renderError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	table, err := s.sess.Export(kind)
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			s.renderError(w, req, http.StatusNotFound, "no data loaded")
			return
		}
		s.renderError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	format := req.URL.Query().Get("format")
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", kind))
		if err := export.WriteCSV(w, table); err != nil {
			s.log.Error("csv export failed", slog.String("error", err.Error()))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", kind))
		if err := export.WriteXLSX(w, table); err != nil {
			s.log.Error("xlsx export failed", slog.String("error", err.Error()))
		}
	default:
		s.renderError(w, req, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

func (s *Server) renderError(w http.ResponseWriter, req *http.Request, code int, msg string) {
	render.Status(req, code)
	render.JSON(w, req, map[string]string{"error": msg})
}

type info struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	SourceKind string    `json:"source_kind"`
	LoadedAt   time.Time `json:"loaded_at"`
	Records    int       `json:"records"`
	Skipped    int       `json:"skipped_year"`
}

func snapshotInfo(snap *session.Snapshot) info {
	return info{
		ID:         snap.ID.String(),
		Job:        snap.Job,
		SourceKind: snap.SourceKind,
		LoadedAt:   snap.LoadedAt,
		Records:    snap.Tables.Records,
		Skipped:    snap.Tables.SkippedYear,
	}
}
