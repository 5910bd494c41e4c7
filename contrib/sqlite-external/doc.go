// Package sqliteexternal registers the optional CGO SQLite driver.
//
// provtrace links a pure Go SQLite driver by default. Building with
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/provtrace
//
// switches core/sqlite, and with it the --db lineage export, to
// github.com/mattn/go-sqlite3 through this package.
package sqliteexternal
