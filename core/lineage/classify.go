package lineage

import (
	"path/filepath"
	"sort"
	"strings"
)

// excludedExtensions name serialized R objects that packages load
// implicitly. Inputs with these extensions are never true inputs.
var excludedExtensions = map[string]bool{
	".rds": true,
}

// hashIndex maps a normalized content hash to output positions, in
// collection order.
type hashIndex map[string][]int

func hashKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func indexOutputs(outputs []FileRecord) hashIndex {
	idx := make(hashIndex, len(outputs))
	for i, o := range outputs {
		if k := hashKey(o.Hash); k != "" {
			idx[k] = append(idx[k], i)
		}
	}
	return idx
}

// Classify marks inputs satisfied by an earlier script's output, by the
// same data node of the same script, or by the extension exclusion list.
// It returns the unsatisfied inputs sorted by script index and path.
func Classify(c *Collection) []FileRecord {
	idx := indexOutputs(c.Outputs)
	var inputs []FileRecord
	for i := range c.Inputs {
		in := &c.Inputs[i]
		in.Satisfied = excluded(in.Path) || satisfiedBy(*in, c.Outputs, idx)
		if !in.Satisfied {
			inputs = append(inputs, *in)
		}
	}
	sortRecords(inputs)
	return inputs
}

func satisfiedBy(in FileRecord, outputs []FileRecord, idx hashIndex) bool {
	for _, oi := range idx[hashKey(in.Hash)] {
		o := outputs[oi]
		if o.Script < in.Script {
			return true
		}
		if o.Script == in.Script && o.NodeID == in.NodeID {
			return true
		}
	}
	return false
}

func excluded(path string) bool {
	return excludedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SortedOutputs returns a copy of outputs sorted by script index and path.
func SortedOutputs(outputs []FileRecord) []FileRecord {
	out := make([]FileRecord, len(outputs))
	copy(out, outputs)
	sortRecords(out)
	return out
}

// sortRecords orders by script index, then path, or name for remote files.
func sortRecords(records []FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Script != records[j].Script {
			return records[i].Script < records[j].Script
		}
		return records[i].DisplayName() < records[j].DisplayName()
	})
}
