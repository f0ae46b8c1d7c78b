// Package sqldoc is the shared database/sql implementation behind the
// sqlite and mssql record sources. Both stores hold one JSON document per
// row in a text column; only the driver name and identifier quoting differ.
package sqldoc

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"seriesstats/internal/records"
	"seriesstats/internal/source"
)

// QuoteFn renders a validated identifier for the backend's SQL dialect.
type QuoteFn func(ident string) string

// Open validates cfg, opens the database and pings it. label prefixes
// errors ("sqlite", "mssql").
func Open(ctx context.Context, label, driver string, quote QuoteFn, cfg source.Config) (source.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%s: dsn is required", label)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%s: table is required", label)
	}
	column := cfg.Column
	if column == "" {
		column = "doc"
	}
	if !source.IsIdent(cfg.Table) || !source.IsIdent(column) {
		return nil, fmt.Errorf("%s: invalid table/column identifier %q.%q", label, cfg.Table, column)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", label, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", label, err)
	}

	return &src{
		label: label,
		db:    db,
		query: fmt.Sprintf("SELECT %s FROM %s", quote(column), quote(cfg.Table)),
	}, nil
}

type src struct {
	label string
	db    *sql.DB
	query string
}

func (s *src) Close() error { return s.db.Close() }

func (s *src) Records(ctx context.Context) (*source.Stream, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", s.label, err)
	}

	ch := make(chan records.Raw, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(ch)
		defer rows.Close()

		for rows.Next() {
			var raw sql.RawBytes
			if err := rows.Scan(&raw); err != nil {
				errc <- fmt.Errorf("%s: scan: %w", s.label, err)
				return
			}
			if len(raw) == 0 {
				continue
			}

			var rec map[string]any
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&rec); err != nil {
				errc <- fmt.Errorf("%s: decode document: %w", s.label, err)
				return
			}

			select {
			case ch <- rec:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- fmt.Errorf("%s: rows: %w", s.label, err)
			return
		}
		errc <- nil
	}()

	return source.NewStream(ch, func() error { return <-errc }), nil
}
