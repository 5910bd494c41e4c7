package lineage

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/cran/provTraceR/core/digest"
	"github.com/cran/provTraceR/internal/logging"
)

// DefaultWorkers is the reconciliation parallelism when none is set.
const DefaultWorkers = 4

// Target is one displayed file to compare with the filesystem.
type Target struct {
	Path      string
	Hash      string
	Algorithm string
	Skip      bool // never checked, e.g. remote files or console sessions
}

// Injectable functions for testing.
var (
	osStat   = os.Stat
	hashFile = digest.File
)

// Reconciler compares recorded files with the live filesystem. A disabled
// Reconciler never touches the filesystem.
type Reconciler struct {
	Enabled bool
	Workers int
}

// Check returns one Status per target, in target order. Probes run in
// parallel; failures to read a file are logged and reported as Changed.
// The only error returned is ctx's.
func (r *Reconciler) Check(ctx context.Context, targets []Target) ([]Status, error) {
	statuses := make([]Status, len(targets))
	if r == nil || !r.Enabled {
		return statuses, nil
	}

	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range targets {
		if t.Skip || t.Path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			statuses[i] = probe(ctx, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// probe computes the status of a single file.
func probe(ctx context.Context, t Target) Status {
	info, err := osStat(t.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Missing
	}
	if err != nil {
		logging.FileCheckFailed(ctx, t.Path, "stat", err)
		return Changed
	}
	if info.IsDir() {
		logging.FileCheckFailed(ctx, t.Path, "stat", errors.New("is a directory"))
		return Changed
	}
	if t.Hash == "" {
		return Unchanged
	}

	alg, err := digest.Parse(t.Algorithm)
	if err != nil {
		logging.FileCheckFailed(ctx, t.Path, "hash", err, "algorithm", t.Algorithm)
		return Changed
	}
	current, err := hashFile(alg, t.Path)
	if err != nil {
		logging.FileCheckFailed(ctx, t.Path, "hash", err, "algorithm", string(alg))
		return Changed
	}
	if digest.Equal(current, t.Hash) {
		return Unchanged
	}
	logging.DebugContext(ctx, "file changed", "path", t.Path, "recorded", t.Hash, "current", current)
	return Changed
}
