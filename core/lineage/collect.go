package lineage

import (
	"path/filepath"

	"github.com/cran/provTraceR/core/provenance"
)

// Collection holds the flattened records of a trace: scripts in caller
// order, then all inputs and all outputs, per-script order preserved.
type Collection struct {
	Scripts []ScriptExecution
	Inputs  []FileRecord
	Outputs []FileRecord
}

// Collect flattens provenance records, given in execution order, into a
// Collection. Every file record is tagged with its script index and the
// hash algorithm of its script's environment.
func Collect(records []*provenance.Record) *Collection {
	c := &Collection{Scripts: make([]ScriptExecution, 0, len(records))}
	for i, rec := range records {
		index := i + 1
		env := rec.Environment
		dir := rec.Dir()

		path := env.Script
		if path == "" {
			path = rec.Script
		}
		c.Scripts = append(c.Scripts, ScriptExecution{
			Index:              index,
			Path:               path,
			Hash:               env.ScriptHash,
			HashAlgorithm:      env.HashAlgorithm,
			Timestamp:          env.ScriptTimestamp,
			ExecutionTimestamp: env.ExecutionTimestamp,
			SavedCopy:          scriptCopy(dir, path),
		})

		for _, e := range rec.Inputs {
			c.Inputs = append(c.Inputs, fileRecord(RoleInput, index, env.HashAlgorithm, dir, e))
		}
		for _, e := range rec.Outputs {
			c.Outputs = append(c.Outputs, fileRecord(RoleOutput, index, env.HashAlgorithm, dir, e))
		}
	}
	return c
}

func fileRecord(role Role, index int, algorithm, dir string, e provenance.Entity) FileRecord {
	return FileRecord{
		Role:          role,
		Script:        index,
		NodeID:        e.ID,
		Path:          e.Location,
		Name:          e.Name,
		Hash:          e.Hash,
		HashAlgorithm: algorithm,
		Timestamp:     e.Timestamp,
		SavedCopy:     e.Value,
		ProvDir:       dir,
		Remote:        e.IsRemote(),
	}
}

// scriptCopy is where the collectors keep a copy of the executed script.
func scriptCopy(dir, script string) string {
	if script == "" || script == provenance.Console || dir == "" {
		return ""
	}
	return filepath.Join(dir, "scripts", filepath.Base(script))
}
