// Command seriesstats loads a series collection, aggregates it by year,
// season count and crew activity, and either serves the tables over HTTP
// or writes one export and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seriesstats/internal/config"
	"seriesstats/internal/export"
	"seriesstats/internal/fieldset"
	"seriesstats/internal/metrics"
	"seriesstats/internal/metrics/datadog"
	"seriesstats/internal/metrics/prompush"
	"seriesstats/internal/normalize"
	"seriesstats/internal/server"
	"seriesstats/internal/session"
	"seriesstats/internal/source"

	// register all source backends; config selects which one runs.
	_ "seriesstats/internal/source/all"
)

func main() {
	var (
		cfgPath    string
		validate   bool
		serve      bool
		exportKind string
		exportFmt  string
		outPath    string
	)

	flag.StringVar(&cfgPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&serve, "serve", false, "serve the HTTP API (implied by server.addr in config)")
	flag.StringVar(&exportKind, "export", "summary", "export kind in one-shot mode (by_year|by_year_season|crew_by_year|in_production|summary)")
	flag.StringVar(&exportFmt, "format", "csv", "export format in one-shot mode (csv|xlsx)")
	flag.StringVar(&outPath, "out", "-", "export destination in one-shot mode ('-' for stdout)")
	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	env, err := config.EnvOverrides()
	if err != nil {
		fatalf("%v", err)
	}
	p.ApplyEnv(env)

	issues := config.Validate(p)
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss)
	}
	if config.HasError(issues) {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if validate {
		log.Printf("configuration is valid: %s", cfgPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupMetrics(ctx, p)
	defer func() {
		if err := metrics.Close(); err != nil {
			log.Printf("metrics: close: %v", err)
		}
	}()

	sel, err := loadSelection(p.Fields)
	if err != nil {
		fatalf("%v", err)
	}

	norm, err := normalize.New(sel, p.Normalize.Options())
	if err != nil {
		fatalf("%v", err)
	}

	src, err := source.New(ctx, p.Source)
	if err != nil {
		fatalf("%v", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("source: close: %v", err)
		}
	}()

	sess := session.New(p.Job)
	load := func(ctx context.Context) (*session.Snapshot, error) {
		return sess.Load(ctx, p.Source.Kind, src, norm)
	}

	if serve || p.Server.Addr != "" {
		runServer(ctx, p, sess, load)
		return
	}

	runOnce(ctx, sess, load, exportKind, exportFmt, outPath)
}

// loadSelection resolves the crew field selection from config. Inline names
// win over a file; a missing list is fatal unless explicitly allowed.
func loadSelection(f config.Fields) (fieldset.Selection, error) {
	var (
		sel fieldset.Selection
		err error
	)
	switch {
	case len(f.Inline) > 0:
		sel, err = fieldset.FromNames(f.Inline)
	case f.Path != "":
		sel, err = fieldset.LoadFile(f.Path, f.Encoding)
	default:
		err = fieldset.ErrNoFields
	}
	if err != nil {
		if f.AllowEmpty {
			log.Printf("fields: %v; continuing without crew fields (allow_empty)", err)
			return fieldset.Empty(), nil
		}
		return fieldset.Selection{}, err
	}
	return sel, nil
}

func setupMetrics(ctx context.Context, p config.Pipeline) {
	job := p.Job
	if job == "" {
		job = "seriesstats"
	}

	switch p.Metrics.Backend {
	case "", "none":

	case "pushgateway":
		gwURL := p.Metrics.PushgatewayURL
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: pushgateway init: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, job)
		metrics.SetBackend(b)

	case "datadog":
		opts := datadog.Options{JobName: job, Tags: p.Metrics.Tags}
		if p.Metrics.FlushSeconds > 0 {
			opts.FlushEvery = time.Duration(p.Metrics.FlushSeconds) * time.Second
		}
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			log.Printf("metrics: datadog init: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog job=%s", job)
		metrics.SetBackend(b)
	}
}

// runServer performs a best-effort initial load, then serves until the
// context is canceled.
func runServer(ctx context.Context, p config.Pipeline, sess *session.Session, load server.LoadFunc) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if snap, err := load(ctx); err != nil {
		logger.Warn("initial load failed; serving empty until /api/load succeeds",
			slog.String("error", err.Error()))
	} else {
		logger.Info("initial load complete",
			slog.String("snapshot", snap.ID.String()),
			slog.Int("records", snap.Tables.Records))
	}

	addr := p.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(logger, sess, load).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalf("serve: %v", err)
	}
}

// runOnce loads, writes one export, and exits.
func runOnce(ctx context.Context, sess *session.Session, load server.LoadFunc, kindStr, format, outPath string) {
	kind, err := export.ParseKind(kindStr)
	if err != nil {
		fatalf("%v", err)
	}

	snap, err := load(ctx)
	if err != nil {
		fatalf("load: %v", err)
	}
	log.Printf("loaded %d records (%d without a usable year) from snapshot %s",
		snap.Tables.Records, snap.Tables.SkippedYear, snap.ID)

	table, err := sess.Export(kind)
	if err != nil {
		fatalf("export: %v", err)
	}

	if err := writeExport(table, format, outPath); err != nil {
		fatalf("export: %v", err)
	}
}

// writeExport serializes table to outPath ("-" or empty means stdout). The
// close error is checked: a failed close can mean a truncated file, which
// must not look like a successful export.
func writeExport(table export.Table, format, outPath string) error {
	var w io.Writer = os.Stdout
	var f *os.File
	if outPath != "-" && outPath != "" {
		var err error
		f, err = os.Create(outPath)
		if err != nil {
			return err
		}
		w = f
	}

	var err error
	switch format {
	case "csv":
		err = export.WriteCSV(w, table)
	case "xlsx":
		err = export.WriteXLSX(w, table)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}

	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(1)
}
