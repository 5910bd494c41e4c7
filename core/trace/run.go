package trace

import (
	"context"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/provenance"
	"github.com/cran/provTraceR/core/runner"
	"github.com/cran/provTraceR/internal/logging"
	"github.com/cran/provTraceR/internal/validation"
)

// RunOptions controls RunAndTrace.
type RunOptions struct {
	Options
	Backend      runner.Backend
	Runner       runner.Config
	SnapshotSize string
	// Executor overrides the executor built from Backend and Runner.
	Executor runner.Executor
}

// Injectable functions for testing.
var newExecutor = runner.New

// RunAndTrace runs each script under the provenance collector, in order,
// and then traces the fresh provenance. The execution order check is
// skipped since the scripts were just run in the order given.
func RunAndTrace(ctx context.Context, opts RunOptions) (*Result, error) {
	scripts, err := validation.ResolveScripts(opts.Scripts)
	if err != nil {
		return nil, err
	}
	ctx, sessionID := newSession(ctx)
	for _, s := range scripts {
		if s == provenance.Console {
			return nil, perrors.NewConfiguration("scripts", "a console session cannot be run")
		}
	}
	if opts.ProvDir == "" {
		return nil, perrors.NewConfiguration("prov-dir", "provenance directory is not set")
	}

	executor := opts.Executor
	if executor == nil {
		executor, err = newExecutor(opts.Backend, opts.Runner)
		if err != nil {
			return nil, err
		}
	}
	if err := executor.Available(ctx); err != nil {
		return nil, err
	}

	for i, script := range scripts {
		req := runner.NewRequest(script, opts.ProvDir)
		req.Details = opts.Details
		req.SnapshotSize = opts.SnapshotSize
		res, err := executor.Execute(ctx, req)
		if err != nil {
			logging.ErrorContext(ctx, "script failed", "script", script, "error", err.Error())
			return nil, perrors.Wrapf(err, "run script %d", i+1)
		}
		logging.InfoContext(ctx, "script executed", "script", script, "duration_ms", res.Duration.Milliseconds())
	}

	return trace(ctx, sessionID, scripts, opts.Options, false)
}
