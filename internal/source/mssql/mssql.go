// Package mssql implements the record source over a SQL Server table
// holding one JSON document per row (NVARCHAR(MAX) column).
package mssql

import (
	"context"

	_ "github.com/microsoft/go-mssqldb"

	"seriesstats/internal/source"
	"seriesstats/internal/source/sqldoc"
)

func init() {
	source.Register("mssql", New)
}

// New connects using a go-mssqldb DSN (sqlserver:// URL or ADO string).
func New(ctx context.Context, cfg source.Config) (source.Source, error) {
	return sqldoc.Open(ctx, "mssql", "sqlserver", quote, cfg)
}

func quote(ident string) string { return "[" + ident + "]" }
