// Package config loads the provtrace configuration file.
//
// Values here are the lowest-precedence layer: command-line flags and
// environment variables override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	perrors "github.com/cran/provTraceR/core/errors"
)

const (
	// SaveDirTemp selects the system temp directory for results files.
	SaveDirTemp = "tmpdir"
	// SaveDirCurrent selects the current working directory.
	SaveDirCurrent = "."

	defaultTool    = "rdtLite"
	defaultRscript = "Rscript"
	defaultWorkers = 4
	defaultTimeout = 30 * time.Minute
)

// Config models config.yaml.
type Config struct {
	ProvDir      string        `yaml:"prov_dir"`
	SaveDir      string        `yaml:"save_dir"`
	Tool         string        `yaml:"tool"`
	Rscript      string        `yaml:"rscript"`
	Workers      int           `yaml:"workers"`
	RunTimeout   time.Duration `yaml:"run_timeout"`
	SnapshotSize string        `yaml:"snapshot_size,omitempty"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// Injectable functions for testing.
var (
	osReadFile    = os.ReadFile
	osUserHomeDir = os.UserHomeDir
)

// DefaultPath returns $XDG_CONFIG_HOME/provtrace/config.yaml, falling back
// to ~/.config/provtrace/config.yaml. It returns "" when neither is known.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "provtrace", "config.yaml")
	}
	home, err := osUserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "provtrace", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the configuration at path. With an empty path the default
// location is used and a missing file yields the built-in defaults; an
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := osReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, &perrors.ConfigurationError{Setting: "config", Message: fmt.Sprintf("read %s", path), Err: err}
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, &perrors.ConfigurationError{Setting: "config", Message: fmt.Sprintf("parse %s: %v", path, err), Err: err}
	}

	parsed.Path = path
	parsed.applyDefaults()
	parsed.normalize(filepath.Dir(path))
	if err := parsed.validate(); err != nil {
		return nil, &perrors.ConfigurationError{Setting: "config", Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return &parsed, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.SaveDir) == "" {
		c.SaveDir = SaveDirTemp
	}
	if strings.TrimSpace(c.Tool) == "" {
		c.Tool = defaultTool
	}
	if strings.TrimSpace(c.Rscript) == "" {
		c.Rscript = defaultRscript
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = defaultTimeout
	}
}

// normalize resolves relative directories against the config file's
// directory and expands a leading ~.
func (c *Config) normalize(base string) {
	c.ProvDir = resolvePath(base, c.ProvDir)
	switch strings.TrimSpace(c.SaveDir) {
	case SaveDirTemp, SaveDirCurrent:
		c.SaveDir = strings.TrimSpace(c.SaveDir)
	default:
		c.SaveDir = resolvePath(base, c.SaveDir)
	}
	c.Tool = strings.TrimSpace(c.Tool)
	c.SnapshotSize = strings.TrimSpace(c.SnapshotSize)
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout must be positive")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		if home, err := osUserHomeDir(); err == nil {
			trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
		}
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
