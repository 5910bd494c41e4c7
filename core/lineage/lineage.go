package lineage

import (
	"context"

	"github.com/cran/provTraceR/core/provenance"
)

// Lineage is the classified result of a trace together with the
// filesystem status of every displayed entry.
type Lineage struct {
	Scripts   []ScriptExecution
	Inputs    []FileRecord // true inputs, sorted
	Outputs   []FileRecord // sorted
	Exchanges []ExchangePair

	ScriptStatus   []Status
	InputStatus    []Status
	OutputStatus   []Status
	ExchangeStatus []Status
}

// Options controls Build.
type Options struct {
	// ValidateOrder rejects scripts whose execution timestamps run
	// backwards. Disabled for scripts that were just run in order.
	ValidateOrder bool
	Reconciler    *Reconciler
}

// Build classifies the records, given in execution order, and reconciles
// every displayed entry with the filesystem.
func Build(ctx context.Context, records []*provenance.Record, opts Options) (*Lineage, error) {
	c := Collect(records)
	if opts.ValidateOrder {
		if err := ValidateOrder(c.Scripts); err != nil {
			return nil, err
		}
	}

	l := &Lineage{
		Scripts:   c.Scripts,
		Inputs:    Classify(c),
		Outputs:   SortedOutputs(c.Outputs),
		Exchanges: DetectExchanges(c),
	}
	if err := l.reconcile(ctx, opts.Reconciler); err != nil {
		return nil, err
	}
	return l, nil
}

// reconcile checks all displayed entries in one batch and distributes the
// statuses back by position.
func (l *Lineage) reconcile(ctx context.Context, r *Reconciler) error {
	var targets []Target
	for _, s := range l.Scripts {
		targets = append(targets, Target{Path: s.Path, Hash: s.Hash, Algorithm: s.HashAlgorithm, Skip: !s.Checkable()})
	}
	for _, f := range l.Inputs {
		targets = append(targets, fileTarget(f))
	}
	for _, f := range l.Outputs {
		targets = append(targets, fileTarget(f))
	}
	for _, x := range l.Exchanges {
		targets = append(targets, fileTarget(x.Input))
	}

	statuses, err := r.Check(ctx, targets)
	if err != nil {
		return err
	}

	n := 0
	take := func(count int) []Status {
		part := statuses[n : n+count : n+count]
		n += count
		return part
	}
	l.ScriptStatus = take(len(l.Scripts))
	l.InputStatus = take(len(l.Inputs))
	l.OutputStatus = take(len(l.Outputs))
	l.ExchangeStatus = take(len(l.Exchanges))
	return nil
}

func fileTarget(f FileRecord) Target {
	return Target{Path: f.Path, Hash: f.Hash, Algorithm: f.HashAlgorithm, Skip: f.Remote}
}
