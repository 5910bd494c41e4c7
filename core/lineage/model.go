// Package lineage reconstructs file lineage across sequentially executed
// scripts from their provenance records.
//
// Records are flattened into script-tagged inputs and outputs, joined by
// content hash into true inputs and cross-script exchanges, optionally
// reconciled against the live filesystem and rendered as a text report.
package lineage

import (
	"path/filepath"

	"github.com/cran/provTraceR/core/provenance"
)

// Role distinguishes the two kinds of file record.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// ScriptExecution describes one traced script.
type ScriptExecution struct {
	Index              int    `json:"index"` // 1-based, execution order
	Path               string `json:"path"`  // script path, or provenance.Console
	Hash               string `json:"hash,omitempty"`
	HashAlgorithm      string `json:"hash_algorithm,omitempty"`
	Timestamp          string `json:"timestamp"`
	ExecutionTimestamp string `json:"execution_timestamp"`
	SavedCopy          string `json:"saved_copy,omitempty"`
}

// Checkable reports whether the script can be compared with the live
// filesystem. Console sessions and unhashed scripts never are.
func (s ScriptExecution) Checkable() bool {
	return s.Path != provenance.Console && s.Hash != "" && s.Path != ""
}

// FileRecord is one read or write of a file by a script.
type FileRecord struct {
	Role          Role   `json:"role"`
	Script        int    `json:"script"`
	NodeID        string `json:"node_id"`
	Path          string `json:"path,omitempty"`
	Name          string `json:"name"`
	Hash          string `json:"hash,omitempty"`
	HashAlgorithm string `json:"hash_algorithm,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	SavedCopy     string `json:"saved_copy,omitempty"` // relative to ProvDir
	ProvDir       string `json:"-"`
	Remote        bool   `json:"remote,omitempty"`
	Satisfied     bool   `json:"satisfied,omitempty"` // inputs only
}

// DisplayName is the path of a local file or the name of a remote one.
func (f FileRecord) DisplayName() string {
	if f.Remote || f.Path == "" {
		return f.Name
	}
	return f.Path
}

// SavedCopyPath returns the saved copy joined to the script's provenance
// directory, or "" when no copy was recorded.
func (f FileRecord) SavedCopyPath() string {
	return savedCopyPath(f.ProvDir, f.SavedCopy)
}

func savedCopyPath(provDir, rel string) string {
	if rel == "" {
		return ""
	}
	if filepath.IsAbs(rel) || provDir == "" {
		return rel
	}
	return filepath.Join(provDir, rel)
}

// ExchangePair is a file written by an earlier script and read by a later
// one, joined by content hash.
type ExchangePair struct {
	Producer int        `json:"producer"`
	Consumer int        `json:"consumer"`
	Output   FileRecord `json:"output"`
	Input    FileRecord `json:"input"`
	Renamed  bool       `json:"renamed"`
}

// Status is the result of comparing a recorded file with the filesystem.
type Status int

const (
	Unchecked Status = iota
	Missing
	Changed
	Unchanged
)

var statusNames = [...]string{"unchecked", "missing", "changed", "unchanged"}
var statusMarkers = [...]string{" ", "-", "+", ":"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Marker returns the one-character report marker for s.
func (s Status) Marker() string {
	if int(s) < len(statusMarkers) {
		return statusMarkers[s]
	}
	return "?"
}
