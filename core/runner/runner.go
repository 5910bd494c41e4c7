// Package runner executes R scripts under a provenance collector so that a
// fresh provenance record can be traced.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	perrors "github.com/cran/provTraceR/core/errors"
)

// Backend is a provenance collector able to run a script.
type Backend int

const (
	// RDTLite is the lightweight collector, the default.
	RDTLite Backend = iota
	// RDT collects fine-grained provenance.
	RDT
)

// backendInfo describes how a Backend is loaded in R.
type backendInfo struct {
	name string // user-facing name
	pkg  string // R package providing prov.run
}

var backends = map[Backend]backendInfo{
	RDTLite: {name: "rdtLite", pkg: "rdtLite"},
	RDT:     {name: "rdt", pkg: "rdt"},
}

// ParseBackend resolves a backend name case-insensitively. An empty name
// selects RDTLite.
func ParseBackend(name string) (Backend, error) {
	if strings.TrimSpace(name) == "" {
		return RDTLite, nil
	}
	for b, info := range backends {
		if strings.EqualFold(info.name, strings.TrimSpace(name)) {
			return b, nil
		}
	}
	return 0, perrors.NewTool(name, fmt.Sprintf("unknown backend (known: %s)", strings.Join(BackendNames(), ", ")))
}

// BackendNames lists the known backend names, sorted.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for _, info := range backends {
		names = append(names, info.name)
	}
	sort.Strings(names)
	return names
}

func (b Backend) String() string {
	if info, ok := backends[b]; ok {
		return info.name
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// Package returns the R package providing the backend.
func (b Backend) Package() string {
	return backends[b].pkg
}

// Request describes one script run.
type Request struct {
	Script       string    `json:"script"`
	ProvDir      string    `json:"prov_dir"`
	Details      bool      `json:"details,omitempty"`
	SnapshotSize string    `json:"snapshot_size,omitempty"` // e.g. "10", "Inf"
	Env          EnvConfig `json:"env"`
}

// EnvConfig contains environment configuration for deterministic execution.
type EnvConfig struct {
	TZ    string `json:"TZ"`
	LCALL string `json:"LC_ALL"`
	LANG  string `json:"LANG"`
}

// NewRequest creates a run request with default environment settings.
func NewRequest(script, provDir string) *Request {
	return &Request{
		Script:  script,
		ProvDir: provDir,
		Env: EnvConfig{
			TZ:    "UTC",
			LCALL: "C.UTF-8",
			LANG:  "C.UTF-8",
		},
	}
}

// Executor runs a script and deposits its provenance record under the
// request's provenance directory.
type Executor interface {
	// Available reports a ToolError when the backend cannot be used.
	Available(ctx context.Context) error
	// Execute runs the script to completion.
	Execute(ctx context.Context, req *Request) (*ExecutionResult, error)
}

// Config holds settings shared by all executors.
type Config struct {
	Rscript string        // interpreter, "Rscript" when empty
	Timeout time.Duration // per-script limit, DefaultTimeout when zero
}

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 30 * time.Minute

// New returns the executor for backend b.
func New(b Backend, cfg Config) (Executor, error) {
	if _, ok := backends[b]; !ok {
		return nil, perrors.NewTool(b.String(), "unknown backend")
	}
	return NewRExecutor(b, cfg), nil
}

// ExecutionResult contains the results of a script run.
type ExecutionResult struct {
	Script   string
	ExitCode int
	Duration time.Duration
	Stdout   []byte
	Stderr   []byte
}
