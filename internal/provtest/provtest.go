// Package provtest writes PROV-JSON fixtures for tests.
package provtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// File describes one data node of a fixture.
type File struct {
	ID        string // e.g. "rdt:d1"
	Name      string
	Location  string // empty for URLs
	Type      string // defaults to "File"
	Hash      string
	Timestamp string
	Value     string // saved copy, relative to the provenance directory
}

// Script describes the provenance of one script execution.
type Script struct {
	Script          string
	ScriptHash      string
	ScriptTimestamp string
	ExecTimestamp   string
	HashAlgorithm   string
	ProvDirectory   string // defaults to the directory written to
	Inputs          []File
	Outputs         []File
}

// JSON renders s as a PROV-JSON document in the rdtLite layout.
func JSON(s Script) ([]byte, error) {
	entity := map[string]map[string]any{
		"rdt:environment": {
			"rdt:name":            "environment",
			"rdt:language":        "R",
			"rdt:script":          s.Script,
			"rdt:scriptTimeStamp": s.ScriptTimestamp,
			"rdt:scriptHash":      s.ScriptHash,
			"rdt:provTimestamp":   s.ExecTimestamp,
			"rdt:hashAlgorithm":   s.HashAlgorithm,
			"rdt:provDirectory":   s.ProvDirectory,
		},
	}
	used := map[string]map[string]any{}
	generated := map[string]map[string]any{}

	add := func(f File) {
		typ := f.Type
		if typ == "" {
			typ = "File"
		}
		entity[f.ID] = map[string]any{
			"rdt:name":      f.Name,
			"rdt:value":     f.Value,
			"rdt:valType":   `{"container":"vector", "dimension":[1], "type":["character"]}`,
			"rdt:type":      typ,
			"rdt:scope":     "undefined",
			"rdt:fromEnv":   false,
			"rdt:hash":      f.Hash,
			"rdt:timestamp": f.Timestamp,
			"rdt:location":  f.Location,
		}
	}
	for i, f := range s.Inputs {
		add(f)
		used[fmt.Sprintf("rdt:dp%d", i+1)] = map[string]any{
			"prov:entity":   f.ID,
			"prov:activity": fmt.Sprintf("rdt:p%d", i+2),
		}
	}
	for i, f := range s.Outputs {
		add(f)
		generated[fmt.Sprintf("rdt:pd%d", i+1)] = map[string]any{
			"prov:activity": fmt.Sprintf("rdt:p%d", i+2),
			"prov:entity":   f.ID,
		}
	}

	doc := map[string]any{
		"prefix": map[string]string{
			"prov": "http://www.w3.org/ns/prov#",
			"rdt":  "https://github.com/End-to-end-provenance/ExtendedProvJson/blob/master/JSON-format.md",
		},
		"agent":          map[string]any{"rdt:a1": map[string]any{"rdt:tool.name": "rdtLite"}},
		"activity":       map[string]any{"rdt:p1": map[string]any{"rdt:name": "script", "rdt:type": "Start"}},
		"entity":         entity,
		"used":           used,
		"wasGeneratedBy": generated,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Write stores s as <provDir>/<recordDir>/prov.json and returns that path.
// recordDir is usually provenance.RecordDir(script).
func Write(t testing.TB, provDir, recordDir string, s Script) string {
	t.Helper()
	dir := filepath.Join(provDir, recordDir)
	if s.ProvDirectory == "" {
		s.ProvDirectory = dir
	}
	data, err := JSON(s)
	if err != nil {
		t.Fatalf("failed to render provenance: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create provenance dir: %v", err)
	}
	path := filepath.Join(dir, "prov.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write provenance: %v", err)
	}
	return path
}
