// Package all links every record source backend into the binary. The
// config names which one to use; the registry needs them all compiled in.
package all

import (
	_ "seriesstats/internal/source/file"
	_ "seriesstats/internal/source/html"
	_ "seriesstats/internal/source/mongo"
	_ "seriesstats/internal/source/mssql"
	_ "seriesstats/internal/source/postgres"
	_ "seriesstats/internal/source/sqlite"
)
