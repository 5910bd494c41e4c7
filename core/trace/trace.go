// Package trace implements the trace and run-then-trace operations: load
// the provenance of a list of scripts, build their lineage and deliver
// the report.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/lineage"
	"github.com/cran/provTraceR/core/provenance"
	"github.com/cran/provTraceR/internal/config"
	"github.com/cran/provTraceR/internal/export"
	"github.com/cran/provTraceR/internal/fileutil"
	"github.com/cran/provTraceR/internal/logging"
	"github.com/cran/provTraceR/internal/validation"
)

// ResultsFile is the name of the saved report.
const ResultsFile = "prov-trace.txt"

// Injectable functions for testing.
var (
	newSessionID = uuid.NewString
	now          = time.Now
	writeFile    = fileutil.WriteFileAtomic
	exportSQLite = export.WriteSQLite
	osGetwd      = os.Getwd
	osTempDir    = os.TempDir
)

// Options controls a trace.
type Options struct {
	// Scripts are script names in execution order, or a single list file.
	Scripts []string
	// ProvDir holds one prov_<script> directory per script, or is a
	// tar.xz / tar.gz bundle of such a directory.
	ProvDir string
	Details bool
	// Console echoes the report to Stdout.
	Console bool
	Stdout  io.Writer
	// Save writes the report to ResultsFile in SaveDir: "tmpdir" (the
	// default), "." or a directory path.
	Save    bool
	SaveDir string
	// Check compares every displayed file with the filesystem.
	Check   bool
	Workers int
	// DB, when set, names a SQLite database the lineage is appended to.
	DB string
}

// Result is a completed trace.
type Result struct {
	SessionID string
	Report    string
	Lineage   *lineage.Lineage
	SavedTo   string // results file, when saved
}

// Trace loads the provenance of opts.Scripts, checks that the scripts were
// executed in the order given and reports their lineage.
func Trace(ctx context.Context, opts Options) (*Result, error) {
	scripts, err := validation.ResolveScripts(opts.Scripts)
	if err != nil {
		return nil, err
	}
	ctx, sessionID := newSession(ctx)
	return trace(ctx, sessionID, scripts, opts, true)
}

// newSession tags ctx with a fresh session id.
func newSession(ctx context.Context) (context.Context, string) {
	id := newSessionID()
	return logging.WithSessionID(ctx, id), id
}

func trace(ctx context.Context, sessionID string, scripts []string, opts Options, validateOrder bool) (*Result, error) {
	start := now()

	store, err := provenance.OpenStore(opts.ProvDir)
	if err != nil {
		return nil, err
	}

	records := make([]*provenance.Record, 0, len(scripts))
	for i, script := range scripts {
		rec, err := store.Load(script)
		if err != nil {
			return nil, err
		}
		logging.ScriptLoaded(ctx, i+1, script, rec.Location, "format", rec.Format)
		if validateOrder && rec.Environment.ExecutionTimestamp == "" {
			logging.WarnContext(ctx, "no execution timestamp recorded", "script", script, "location", rec.Location)
		}
		records = append(records, rec)
	}

	l, err := lineage.Build(ctx, records, lineage.Options{
		ValidateOrder: validateOrder,
		Reconciler:    &lineage.Reconciler{Enabled: opts.Check, Workers: opts.Workers},
	})
	if err != nil {
		return nil, err
	}

	res := &Result{SessionID: sessionID, Report: l.Render(opts.Details), Lineage: l}

	if opts.Save {
		dir, err := ResolveSaveDir(opts.SaveDir)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, ResultsFile)
		if err := writeFile(path, []byte(res.Report), 0644); err != nil {
			return nil, perrors.NewIO("write", path, err)
		}
		res.SavedTo = path
		logging.InfoContext(ctx, "results saved", "path", path)
	}

	if opts.DB != "" {
		session := export.Session{ID: sessionID, ProvDir: store.Root(), Created: start}
		if err := exportSQLite(ctx, opts.DB, session, l); err != nil {
			return nil, perrors.NewIO("export", opts.DB, err)
		}
	}

	if opts.Console {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := io.WriteString(w, res.Report); err != nil {
			return nil, perrors.NewIO("write", "report", err)
		}
	}

	logging.TraceCompleted(ctx, len(l.Scripts), len(l.Inputs), len(l.Outputs), len(l.Exchanges), now().Sub(start))
	return res, nil
}

// ResolveSaveDir maps a save-directory setting to a directory path.
func ResolveSaveDir(dir string) (string, error) {
	switch dir {
	case "", config.SaveDirTemp:
		return osTempDir(), nil
	case config.SaveDirCurrent:
		wd, err := osGetwd()
		if err != nil {
			return "", &perrors.ConfigurationError{Setting: "save-dir", Message: "cannot resolve current directory", Err: err}
		}
		return wd, nil
	}
	if err := validation.ValidatePath(dir); err != nil {
		return "", &perrors.ConfigurationError{Setting: "save-dir", Message: fmt.Sprintf("bad directory %q", dir), Err: err}
	}
	return dir, nil
}
