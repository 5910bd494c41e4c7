package lineage

import (
	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/provenance"
)

// ValidateOrder checks that the recorded execution timestamps of adjacent
// scripts never run backwards. Timestamps that cannot be parsed are
// compared as strings.
func ValidateOrder(scripts []ScriptExecution) error {
	if len(scripts) <= 1 {
		return nil
	}
	for i := 0; i+1 < len(scripts); i++ {
		a, b := scripts[i], scripts[i+1]
		if executedAfter(a.ExecutionTimestamp, b.ExecutionTimestamp) {
			return perrors.NewOrder(a.Path, a.ExecutionTimestamp, b.Path, b.ExecutionTimestamp)
		}
	}
	return nil
}

// executedAfter reports whether timestamp a is later than b.
func executedAfter(a, b string) bool {
	ta, okA := provenance.ParseTimestamp(a)
	tb, okB := provenance.ParseTimestamp(b)
	if okA && okB {
		return ta.After(tb)
	}
	return a > b
}
