package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/provenance"
	"github.com/cran/provTraceR/internal/logging"
)

// Injectable functions for testing.
var (
	execCommandContext = exec.CommandContext
	execLookPath       = exec.LookPath
	osStat             = os.Stat
	osMkdirAll         = os.MkdirAll
	filepathAbs        = filepath.Abs
)

// RExecutor runs scripts through Rscript with a collector package loaded.
type RExecutor struct {
	Backend Backend
	Rscript string
	Timeout time.Duration
}

// NewRExecutor creates an executor for backend b.
func NewRExecutor(b Backend, cfg Config) *RExecutor {
	e := &RExecutor{Backend: b, Rscript: cfg.Rscript, Timeout: cfg.Timeout}
	if e.Rscript == "" {
		e.Rscript = "Rscript"
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultTimeout
	}
	return e
}

// Available checks that Rscript is on the PATH and the collector package
// is installed.
func (e *RExecutor) Available(ctx context.Context) error {
	path, err := execLookPath(e.Rscript)
	if err != nil {
		return &perrors.ToolError{Tool: e.Backend.String(), Reason: fmt.Sprintf("%s not found", e.Rscript), Err: err}
	}

	expr := fmt.Sprintf("if (!requireNamespace(%s, quietly = TRUE)) quit(status = 1)", rString(e.Backend.Package()))
	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	cmd := execCommandContext(ctxWithTimeout, path, "-e", expr)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &perrors.ToolError{
			Tool:   e.Backend.String(),
			Reason: fmt.Sprintf("R package %s is not installed", e.Backend.Package()),
			Err:    err,
		}
	}
	return nil
}

// Execute runs req.Script and waits for it to finish. A non-zero exit is
// reported as a ToolError carrying the script's stderr. Rscript starts in
// the script's directory; relative paths are resolved against the caller's
// working directory first.
func (e *RExecutor) Execute(ctx context.Context, req *Request) (*ExecutionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resolved, err := absRequest(req)
	if err != nil {
		return nil, err
	}
	if err := osMkdirAll(resolved.ProvDir, 0755); err != nil {
		return nil, perrors.NewIO("create", resolved.ProvDir, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := execCommandContext(ctxWithTimeout, e.Rscript, "-e", e.buildExpression(resolved))
	cmd.Dir = filepath.Dir(resolved.Script)
	cmd.Env = append(os.Environ(),
		"TZ="+req.Env.TZ,
		"LC_ALL="+req.Env.LCALL,
		"LANG="+req.Env.LANG,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.DebugContext(ctx, "running script", "script", req.Script, "backend", e.Backend.String())
	startTime := time.Now()
	runErr := cmd.Run()
	duration := time.Since(startTime)

	result := &ExecutionResult{
		Script:   req.Script,
		Duration: duration,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &perrors.ToolError{
				Tool:   e.Backend.String(),
				Reason: fmt.Sprintf("script %s exited with status %d: %s", req.Script, result.ExitCode, strings.TrimSpace(stderr.String())),
				Err:    exitErr,
			}
		}
		return nil, &perrors.ToolError{Tool: e.Backend.String(), Reason: "failed to start " + e.Rscript, Err: runErr}
	}
	return result, nil
}

// absRequest returns a copy of req with absolute script and provenance
// directory paths.
func absRequest(req *Request) (*Request, error) {
	resolved := *req
	for _, p := range []*string{&resolved.Script, &resolved.ProvDir} {
		abs, err := filepathAbs(*p)
		if err != nil {
			return nil, &perrors.ConfigurationError{Setting: "scripts", Message: fmt.Sprintf("cannot resolve %s", *p), Err: err}
		}
		*p = abs
	}
	return &resolved, nil
}

// buildExpression builds the R expression passed to Rscript -e.
func (e *RExecutor) buildExpression(req *Request) string {
	args := []string{
		rString(req.Script),
		"prov.dir = " + rString(req.ProvDir),
		"details = " + rBool(req.Details),
	}
	if req.SnapshotSize != "" {
		args = append(args, "snapshot.size = "+rSnapshot(req.SnapshotSize))
	}
	return fmt.Sprintf("library(%s); prov.run(%s)", e.Backend.Package(), strings.Join(args, ", "))
}

// validateRequest rejects console sessions and missing scripts.
func validateRequest(req *Request) error {
	if req == nil || req.Script == "" {
		return perrors.NewConfiguration("scripts", "no script to run")
	}
	if req.Script == provenance.Console {
		return perrors.NewConfiguration("scripts", "a console session cannot be run")
	}
	if req.ProvDir == "" {
		return perrors.NewConfiguration("prov-dir", "provenance directory is not set")
	}
	info, err := osStat(req.Script)
	if err != nil {
		return &perrors.ConfigurationError{Setting: "scripts", Message: fmt.Sprintf("script %s does not exist", req.Script), Err: err}
	}
	if info.IsDir() {
		return perrors.NewConfiguration("scripts", fmt.Sprintf("script %s is a directory", req.Script))
	}
	return nil
}

// rString quotes s as an R string literal.
func rString(s string) string {
	return strconv.Quote(s)
}

func rBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// rSnapshot renders a snapshot size: a number, or Inf.
func rSnapshot(s string) string {
	if strings.EqualFold(s, "inf") {
		return "Inf"
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	return rString(s)
}
