// Package provenance reads per-script provenance records written by R
// provenance collectors (rdt, rdtLite) and exposes the facts a lineage trace
// needs: the execution environment and the files the script read and wrote.
package provenance

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Console is the symbolic script name of an interactive console session.
const Console = "console"

// Entity types as written by the collectors.
const (
	TypeFile = "File"
	TypeURL  = "URL"
)

// Environment holds the facts recorded about one script execution.
type Environment struct {
	Script             string `json:"script"`
	ScriptTimestamp    string `json:"script_timestamp"`
	ScriptHash         string `json:"script_hash,omitempty"`
	ExecutionTimestamp string `json:"execution_timestamp"`
	HashAlgorithm      string `json:"hash_algorithm,omitempty"`
	ProvDirectory      string `json:"prov_directory"`
}

// Entity is a data node describing one read or write of a file or URL.
type Entity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Value     string `json:"value,omitempty"` // saved copy, relative to the provenance directory
	Type      string `json:"type"`
	Hash      string `json:"hash,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Location  string `json:"location,omitempty"`
}

// IsRemote reports whether the entity is a URL rather than a local file.
func (e Entity) IsRemote() bool {
	return e.Type == TypeURL || e.Location == ""
}

// Record is the parsed provenance of one script.
type Record struct {
	Script      string // name the record was requested under
	Location    string // where the record was read from
	Format      string // "PROV-JSON" or "PROV-XML"
	Environment Environment
	Inputs      []Entity
	Outputs     []Entity
}

// Dir returns the provenance directory used to resolve saved copies.
func (r *Record) Dir() string {
	if r.Environment.ProvDirectory != "" {
		return r.Environment.ProvDirectory
	}
	return filepath.Dir(r.Location)
}

// ScriptBase returns the name used for a script's provenance directory:
// the base name without its .R suffix. The console session maps to itself.
func ScriptBase(script string) string {
	if script == Console {
		return Console
	}
	base := filepath.Base(script)
	ext := filepath.Ext(base)
	if ext == ".R" || ext == ".r" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// timestampLayouts are tried in order when parsing recorded timestamps.
var timestampLayouts = []string{
	"2006-01-02T15.04.05MST",
	"2006-01-02T15.04.05",
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a recorded timestamp. The zero time and false are
// returned when no known layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// nodeNumber extracts the numeric part of ids like "rdt:d12".
func nodeNumber(id string) (int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	return n, err == nil
}

// sortEntities orders entities by data-node number, falling back to id.
func sortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		ni, okI := nodeNumber(entities[i].ID)
		nj, okJ := nodeNumber(entities[j].ID)
		if okI && okJ && ni != nj {
			return ni < nj
		}
		if okI != okJ {
			return okI
		}
		return entities[i].ID < entities[j].ID
	})
}

// selectFiles returns the entities referenced by refs whose type is allowed,
// in data-node order.
func selectFiles(entities map[string]Entity, refs map[string]bool, allowed ...string) []Entity {
	var out []Entity
	for id := range refs {
		e, ok := entities[id]
		if !ok {
			continue
		}
		for _, t := range allowed {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	sortEntities(out)
	return out
}
