// Package export writes trace results to a SQLite database.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cran/provTraceR/core/lineage"
	"github.com/cran/provTraceR/core/sqlite"
	"github.com/cran/provTraceR/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	prov_dir     TEXT NOT NULL,
	script_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scripts (
	session_id          TEXT NOT NULL REFERENCES sessions(id),
	idx                 INTEGER NOT NULL,
	path                TEXT NOT NULL,
	hash                TEXT,
	hash_algorithm      TEXT,
	timestamp           TEXT,
	execution_timestamp TEXT,
	saved_copy          TEXT,
	status              TEXT NOT NULL,
	PRIMARY KEY (session_id, idx)
);
CREATE TABLE IF NOT EXISTS files (
	session_id     TEXT NOT NULL REFERENCES sessions(id),
	role           TEXT NOT NULL,
	script         INTEGER NOT NULL,
	node_id        TEXT NOT NULL,
	path           TEXT,
	name           TEXT,
	hash           TEXT,
	hash_algorithm TEXT,
	timestamp      TEXT,
	saved_copy     TEXT,
	remote         INTEGER NOT NULL,
	status         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS exchanges (
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	producer      INTEGER NOT NULL,
	consumer      INTEGER NOT NULL,
	producer_path TEXT,
	consumer_path TEXT,
	hash          TEXT,
	renamed       INTEGER NOT NULL,
	status        TEXT NOT NULL
);
`

// Session identifies one trace in the database.
type Session struct {
	ID      string
	ProvDir string
	Created time.Time
}

// Injectable functions for testing.
var openDB = sqlite.OpenFile

// WriteSQLite appends the lineage of one trace session to the database at
// path, creating the schema on first use. All rows are written in a
// single transaction.
func WriteSQLite(ctx context.Context, path string, s Session, l *lineage.Lineage) error {
	info := sqlite.GetInfo()
	logging.DebugContext(ctx, "exporting lineage", "path", path, "driver", info.DriverName, "driver_type", info.DriverType, "package", info.Package)

	db, err := openDB(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("export: create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	if err := writeSession(ctx, tx, s, l); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

func writeSession(ctx context.Context, tx *sql.Tx, s Session, l *lineage.Lineage) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, prov_dir, script_count) VALUES (?, ?, ?, ?)`,
		s.ID, s.Created.UTC().Format(time.RFC3339), s.ProvDir, len(l.Scripts)); err != nil {
		return fmt.Errorf("export: insert session: %w", err)
	}

	for i, sc := range l.Scripts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scripts (session_id, idx, path, hash, hash_algorithm, timestamp, execution_timestamp, saved_copy, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, sc.Index, sc.Path, sc.Hash, sc.HashAlgorithm, sc.Timestamp, sc.ExecutionTimestamp, sc.SavedCopy,
			statusAt(l.ScriptStatus, i).String()); err != nil {
			return fmt.Errorf("export: insert script %d: %w", sc.Index, err)
		}
	}

	insertFiles := func(files []lineage.FileRecord, statuses []lineage.Status) error {
		for i, f := range files {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO files (session_id, role, script, node_id, path, name, hash, hash_algorithm, timestamp, saved_copy, remote, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, string(f.Role), f.Script, f.NodeID, f.Path, f.Name, f.Hash, f.HashAlgorithm, f.Timestamp,
				f.SavedCopyPath(), boolInt(f.Remote), statusAt(statuses, i).String()); err != nil {
				return fmt.Errorf("export: insert %s %s: %w", f.Role, f.DisplayName(), err)
			}
		}
		return nil
	}
	if err := insertFiles(l.Inputs, l.InputStatus); err != nil {
		return err
	}
	if err := insertFiles(l.Outputs, l.OutputStatus); err != nil {
		return err
	}

	for i, x := range l.Exchanges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exchanges (session_id, producer, consumer, producer_path, consumer_path, hash, renamed, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, x.Producer, x.Consumer, x.Output.DisplayName(), x.Input.DisplayName(), x.Input.Hash,
			boolInt(x.Renamed), statusAt(l.ExchangeStatus, i).String()); err != nil {
			return fmt.Errorf("export: insert exchange %d > %d: %w", x.Producer, x.Consumer, err)
		}
	}
	return nil
}

func statusAt(statuses []lineage.Status, i int) lineage.Status {
	if i < len(statuses) {
		return statuses[i]
	}
	return lineage.Unchecked
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
