// Package sqlite implements the record source over a SQLite table holding
// one JSON document per row. Useful for local snapshots of the collection
// and for tests that need a real database without a server.
package sqlite

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"seriesstats/internal/source"
	"seriesstats/internal/source/sqldoc"
)

func init() {
	source.Register("sqlite", New)
}

// New opens the database file named by the DSN.
func New(ctx context.Context, cfg source.Config) (source.Source, error) {
	return sqldoc.Open(ctx, "sqlite", "sqlite", quote, cfg)
}

func quote(ident string) string { return fmt.Sprintf("%q", ident) }
