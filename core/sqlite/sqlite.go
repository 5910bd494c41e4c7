// Package sqlite opens SQLite databases through either a pure Go
// (modernc.org/sqlite) or a CGO (mattn/go-sqlite3) driver.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite
//   - CGO_ENABLED=1 -tags cgo_sqlite: mattn/go-sqlite3 via contrib/sqlite-external
//
// Use Open instead of sql.Open so the driver matching the build is used.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// DriverName returns the database/sql driver name of this build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the build's driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenFile opens the database file at path and checks that it is usable.
// Foreign keys are enabled on the returned connection pool.
func OpenFile(ctx context.Context, path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return db, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
