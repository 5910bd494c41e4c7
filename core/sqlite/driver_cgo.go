//go:build cgo_sqlite

// Build with -tags cgo_sqlite and CGO_ENABLED=1 to link mattn/go-sqlite3,
// registered by contrib/sqlite-external.
package sqlite

import (
	sqliteexternal "github.com/cran/provTraceR/contrib/sqlite-external"
)

const (
	driverName    = sqliteexternal.DriverName
	driverType    = sqliteexternal.DriverType
	driverPackage = sqliteexternal.DriverPackage + " (via contrib/sqlite-external)"
)
