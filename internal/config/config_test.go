package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	perrors "github.com/cran/provTraceR/core/errors"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := &Config{
		SaveDir:    SaveDirTemp,
		Tool:       "rdtLite",
		Rscript:    "Rscript",
		Workers:    4,
		RunTimeout: 30 * time.Minute,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "provtrace")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
prov_dir: prov
save_dir: /var/tmp/results
tool: rdt
rscript: /opt/R/bin/Rscript
workers: 8
run_timeout: 90s
snapshot_size: Inf
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := &Config{
		ProvDir:      filepath.Join(dir, "prov"),
		SaveDir:      "/var/tmp/results",
		Tool:         "rdt",
		Rscript:      "/opt/R/bin/Rscript",
		Workers:      8,
		RunTimeout:   90 * time.Second,
		SnapshotSize: "Inf",
		Path:         filepath.Join(dir, "config.yaml"),
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSaveDirKeywords(t *testing.T) {
	for _, keyword := range []string{SaveDirTemp, SaveDirCurrent} {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("save_dir: "+keyword+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		c, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if c.SaveDir != keyword {
			t.Errorf("SaveDir = %q, want %q", c.SaveDir, keyword)
		}
	}
}

func TestLoadExpandsHome(t *testing.T) {
	orig := osUserHomeDir
	defer func() { osUserHomeDir = orig }()
	osUserHomeDir = func() (string, error) { return "/home/me", nil }

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("prov_dir: ~/prov\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.ProvDir != "/home/me/prov" {
		t.Errorf("ProvDir = %q", c.ProvDir)
	}
}

func TestLoadErrors(t *testing.T) {
	write := func(content string) string {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	tests := []struct {
		name string
		path string
	}{
		{"explicit file missing", filepath.Join(t.TempDir(), "missing.yaml")},
		{"malformed yaml", write("prov_dir: [unclosed\n")},
		{"bad duration", write("run_timeout: soon\n")},
		{"negative workers", write("workers: -2\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if !errors.Is(err, perrors.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadReadError(t *testing.T) {
	orig := osReadFile
	defer func() { osReadFile = orig }()
	osReadFile = func(string) ([]byte, error) { return nil, os.ErrPermission }

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := Load(""); !errors.Is(err, os.ErrPermission) {
		t.Errorf("expected permission error even for the default path, got %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != "/xdg/provtrace/config.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	orig := osUserHomeDir
	defer func() { osUserHomeDir = orig }()
	osUserHomeDir = func() (string, error) { return "/home/me", nil }
	if got := DefaultPath(); got != "/home/me/.config/provtrace/config.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}

	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	if got := DefaultPath(); got != "" {
		t.Errorf("DefaultPath() = %q, want empty", got)
	}
	c, err := Load("")
	if err != nil || c.Tool != "rdtLite" {
		t.Errorf("Load without a default path = %+v, %v", c, err)
	}
}
