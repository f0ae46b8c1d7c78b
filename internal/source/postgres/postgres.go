// Package postgres implements the record source over a Postgres table that
// stores one JSON document per row (jsonb column, "doc" by default).
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seriesstats/internal/records"
	"seriesstats/internal/source"
)

func init() {
	source.Register("postgres", New)
}

// New opens a connection pool and verifies connectivity.
func New(ctx context.Context, cfg source.Config) (source.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	table, column, err := tableColumn(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &src{pool: pool, table: table, column: column}, nil
}

func tableColumn(cfg source.Config) (table, column string, err error) {
	table = cfg.Table
	if table == "" {
		return "", "", fmt.Errorf("postgres: table is required")
	}
	column = cfg.Column
	if column == "" {
		column = "doc"
	}
	if !source.IsIdent(table) || !source.IsIdent(column) {
		return "", "", fmt.Errorf("postgres: invalid table/column identifier %q.%q", table, column)
	}
	return table, column, nil
}

type src struct {
	pool   *pgxpool.Pool
	table  string
	column string
}

func (s *src) Close() error {
	s.pool.Close()
	return nil
}

func (s *src) Records(ctx context.Context) (*source.Stream, error) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		pgx.Identifier{s.column}.Sanitize(),
		pgx.Identifier{s.table}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}

	ch := make(chan records.Raw, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(ch)
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				errc <- fmt.Errorf("postgres: scan: %w", err)
				return
			}
			rec, err := decodeDoc(raw)
			if err != nil {
				errc <- err
				return
			}
			if rec == nil {
				continue
			}
			select {
			case ch <- rec:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- fmt.Errorf("postgres: rows: %w", err)
			return
		}
		errc <- nil
	}()

	return source.NewStream(ch, func() error { return <-errc }), nil
}

func decodeDoc(raw []byte) (records.Raw, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rec map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("postgres: decode document: %w", err)
	}
	return rec, nil
}
