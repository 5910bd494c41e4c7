package provenance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/internal/archive"
	"github.com/cran/provTraceR/internal/provtest"
)

func sampleScript() provtest.Script {
	return provtest.Script{
		Script:          "/work/analysis.R",
		ScriptHash:      "0123abcd",
		ScriptTimestamp: "2024-03-01T09.00.00UTC",
		ExecTimestamp:   "2024-03-01T10.15.30UTC",
		HashAlgorithm:   "md5",
		ProvDirectory:   "/prov/prov_analysis",
		Inputs: []provtest.File{
			{ID: "rdt:d10", Name: "b.csv", Location: "/work/b.csv", Hash: "bb", Value: "data/10-b.csv"},
			{ID: "rdt:d2", Name: "a.csv", Location: "/work/a.csv", Hash: "aa", Timestamp: "2024-02-01T08.00.00UTC", Value: "data/2-a.csv"},
			{ID: "rdt:d3", Name: "http://example.org/data", Type: "URL", Hash: "uu"},
		},
		Outputs: []provtest.File{
			{ID: "rdt:d5", Name: "out.csv", Location: "/work/out.csv", Hash: "oo", Value: "data/5-out.csv"},
		},
	}
}

func TestParseJSON(t *testing.T) {
	data, err := provtest.JSON(sampleScript())
	if err != nil {
		t.Fatal(err)
	}

	rec, err := ParseJSON(data, "/prov/prov_analysis/prov.json")
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	wantEnv := Environment{
		Script:             "/work/analysis.R",
		ScriptTimestamp:    "2024-03-01T09.00.00UTC",
		ScriptHash:         "0123abcd",
		ExecutionTimestamp: "2024-03-01T10.15.30UTC",
		HashAlgorithm:      "md5",
		ProvDirectory:      "/prov/prov_analysis",
	}
	if diff := cmp.Diff(wantEnv, rec.Environment); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}

	wantInputs := []Entity{
		{ID: "rdt:d2", Name: "a.csv", Value: "data/2-a.csv", Type: "File", Hash: "aa", Timestamp: "2024-02-01T08.00.00UTC", Location: "/work/a.csv"},
		{ID: "rdt:d3", Name: "http://example.org/data", Type: "URL", Hash: "uu"},
		{ID: "rdt:d10", Name: "b.csv", Value: "data/10-b.csv", Type: "File", Hash: "bb", Location: "/work/b.csv"},
	}
	if diff := cmp.Diff(wantInputs, rec.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	if len(rec.Outputs) != 1 || rec.Outputs[0].ID != "rdt:d5" {
		t.Errorf("outputs = %+v", rec.Outputs)
	}
	if !rec.Inputs[1].IsRemote() {
		t.Error("URL input should be remote")
	}
	if rec.Inputs[0].IsRemote() {
		t.Error("file input should not be remote")
	}
	if rec.Format != FormatJSON {
		t.Errorf("Format = %q", rec.Format)
	}
}

func TestParseJSONNonStringAttributes(t *testing.T) {
	data := []byte(`{
	  "entity": {
	    "rdt:environment": {"rdt:script": "s.R", "rdt:scriptHash": "NA", "rdt:provTimestamp": "2024-01-01T00.00.00UTC"},
	    "rdt:d1": {"rdt:name": "n.csv", "rdt:type": "File", "rdt:hash": 12345, "rdt:location": ["/w/n.csv"]}
	  },
	  "used": {"rdt:dp1": {"prov:entity": "rdt:d1", "prov:activity": "rdt:p2"}}
	}`)
	rec, err := ParseJSON(data, "x")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Environment.ScriptHash != "" {
		t.Errorf("NA should read as empty, got %q", rec.Environment.ScriptHash)
	}
	if len(rec.Inputs) != 1 {
		t.Fatalf("inputs = %+v", rec.Inputs)
	}
	if rec.Inputs[0].Hash != "12345" || rec.Inputs[0].Location != "/w/n.csv" {
		t.Errorf("input = %+v", rec.Inputs[0])
	}
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"entity": `},
		{"no environment", `{"entity": {"rdt:d1": {"rdt:type": "File"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data), "/p/prov.json")
			var pe *perrors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Format != FormatJSON || pe.Path != "/p/prov.json" {
				t.Errorf("ParseError = %+v", pe)
			}
		})
	}
}

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<prov:document xmlns:prov="http://www.w3.org/ns/prov#" xmlns:rdt="https://github.com/End-to-end-provenance">
  <prov:entity prov:id="rdt:environment">
    <rdt:script>/work/b.R</rdt:script>
    <rdt:scriptTimeStamp>2024-03-02T09.00.00UTC</rdt:scriptTimeStamp>
    <rdt:scriptHash>feed</rdt:scriptHash>
    <rdt:provTimestamp>2024-03-02T10.00.00UTC</rdt:provTimestamp>
    <rdt:hashAlgorithm>sha256</rdt:hashAlgorithm>
    <rdt:provDirectory>/prov/prov_b</rdt:provDirectory>
  </prov:entity>
  <prov:entity prov:id="rdt:d4">
    <rdt:name>c.csv</rdt:name>
    <rdt:type>File</rdt:type>
    <rdt:hash>cc</rdt:hash>
    <rdt:location>/work/c.csv</rdt:location>
    <rdt:value>data/4-c.csv</rdt:value>
  </prov:entity>
  <prov:entity prov:id="rdt:d1">
    <rdt:name>b.csv</rdt:name>
    <rdt:type>File</rdt:type>
    <rdt:hash>bb</rdt:hash>
    <rdt:location>/work/b.csv</rdt:location>
    <rdt:timestamp>NA</rdt:timestamp>
  </prov:entity>
  <prov:entity prov:id="rdt:d2">
    <rdt:name>x</rdt:name>
    <rdt:type>Data</rdt:type>
  </prov:entity>
  <prov:used>
    <prov:activity prov:ref="rdt:p2"/>
    <prov:entity prov:ref="rdt:d1"/>
  </prov:used>
  <prov:used>
    <prov:activity prov:ref="rdt:p3"/>
    <prov:entity prov:ref="rdt:d2"/>
  </prov:used>
  <prov:wasGeneratedBy>
    <prov:entity prov:ref="rdt:d4"/>
    <prov:activity prov:ref="rdt:p3"/>
  </prov:wasGeneratedBy>
</prov:document>`

func TestParseXML(t *testing.T) {
	rec, err := ParseXML([]byte(sampleXML), "/prov/prov_b/prov.xml")
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}
	if rec.Environment.Script != "/work/b.R" || rec.Environment.HashAlgorithm != "sha256" {
		t.Errorf("environment = %+v", rec.Environment)
	}
	if rec.Environment.ExecutionTimestamp != "2024-03-02T10.00.00UTC" {
		t.Errorf("execution timestamp = %q", rec.Environment.ExecutionTimestamp)
	}

	wantInputs := []Entity{{ID: "rdt:d1", Name: "b.csv", Type: "File", Hash: "bb", Location: "/work/b.csv"}}
	if diff := cmp.Diff(wantInputs, rec.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	wantOutputs := []Entity{{ID: "rdt:d4", Name: "c.csv", Value: "data/4-c.csv", Type: "File", Hash: "cc", Location: "/work/c.csv"}}
	if diff := cmp.Diff(wantOutputs, rec.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseXMLErrors(t *testing.T) {
	if _, err := ParseXML([]byte(`<prov:document><prov:entity></prov:document>`), "x"); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for malformed XML, got %v", err)
	}
	noEnv := `<prov:document xmlns:prov="http://www.w3.org/ns/prov#"><prov:entity prov:id="rdt:d1"/></prov:document>`
	if _, err := ParseXML([]byte(noEnv), "x"); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing environment, got %v", err)
	}
}

func TestScriptBase(t *testing.T) {
	tests := map[string]string{
		"analysis.R":        "analysis",
		"/work/dir/clean.r": "clean",
		"console":           "console",
		"notes.Rmd":         "notes.Rmd",
	}
	for in, want := range tests {
		if got := ScriptBase(in); got != want {
			t.Errorf("ScriptBase(%q) = %q, want %q", in, got, want)
		}
	}
	if got := RecordDir("a/b/analysis.R"); got != "prov_analysis" {
		t.Errorf("RecordDir = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01T10.15.30UTC", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), true},
		{"2024-03-01T10.15.30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), true},
		{"2024-03-01T10:15:30Z", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), true},
		{"2024-03-01 10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStoreLoadDirectory(t *testing.T) {
	provDir := t.TempDir()
	s := sampleScript()
	s.ProvDirectory = ""
	provtest.Write(t, provDir, "prov_analysis", s)

	store, err := OpenStore(provDir)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	rec, err := store.Load("analysis.R")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Script != "analysis.R" {
		t.Errorf("Script = %q", rec.Script)
	}
	if want := filepath.Join(provDir, "prov_analysis"); rec.Dir() != want {
		t.Errorf("Dir() = %q, want %q", rec.Dir(), want)
	}
	if len(rec.Inputs) != 3 {
		t.Errorf("inputs = %d, want 3", len(rec.Inputs))
	}
}

func TestStoreLoadXMLFallback(t *testing.T) {
	provDir := t.TempDir()
	dir := filepath.Join(provDir, "prov_b")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, XMLFile), []byte(sampleXML), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := OpenStore(provDir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := store.Load("b.R")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Format != FormatXML {
		t.Errorf("Format = %q, want %q", rec.Format, FormatXML)
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Load("missing.R")
	if !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLoadReadError(t *testing.T) {
	orig := osReadFile
	defer func() { osReadFile = orig }()
	osReadFile = func(string) ([]byte, error) { return nil, os.ErrPermission }

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("a.R"); !errors.Is(err, perrors.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestOpenStoreErrors(t *testing.T) {
	if _, err := OpenStore(""); !errors.Is(err, perrors.ErrConfiguration) {
		t.Errorf("empty root: expected ErrConfiguration, got %v", err)
	}
	if _, err := OpenStore(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, perrors.ErrConfiguration) {
		t.Errorf("missing root: expected ErrConfiguration, got %v", err)
	}
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(file); !errors.Is(err, perrors.ErrConfiguration) {
		t.Errorf("plain file: expected ErrConfiguration, got %v", err)
	}
}

func TestStoreLoadArchive(t *testing.T) {
	work := t.TempDir()
	provDir := filepath.Join(work, "prov")
	provtest.Write(t, provDir, "prov_analysis", sampleScript())
	bundle := filepath.Join(work, "prov.tar.xz")
	if err := archive.CreateTarXz(provDir, bundle, "prov"); err != nil {
		t.Fatalf("CreateTarXz failed: %v", err)
	}

	store, err := OpenStore(bundle)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	rec, err := store.Load("analysis.R")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Location != bundle+"!prov/prov_analysis/prov.json" {
		t.Errorf("Location = %q", rec.Location)
	}
	if len(rec.Outputs) != 1 {
		t.Errorf("outputs = %d", len(rec.Outputs))
	}

	if _, err := store.Load("other.R"); !errors.Is(err, perrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
