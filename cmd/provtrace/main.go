// Command provtrace reports the file lineage of R scripts from the
// provenance recorded by rdt or rdtLite.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/cran/provTraceR/core/runner"
	"github.com/cran/provTraceR/core/trace"
	"github.com/cran/provTraceR/internal/archive"
	"github.com/cran/provTraceR/internal/config"
	"github.com/cran/provTraceR/internal/logging"
)

const version = "1.0.0"

// Injectable functions for testing.
var (
	traceFn       = trace.Trace
	runAndTraceFn = trace.RunAndTrace
	createBundle  = archive.CreateTarXz

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" env:"PROVTRACE_CONFIG" help:"Configuration file (default $XDG_CONFIG_HOME/provtrace/config.yaml)" type:"path"`
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`
}

// CLI defines the command-line interface for provtrace.
type CLI struct {
	Globals

	Trace   TraceCmd   `cmd:"" help:"Trace file lineage from existing provenance"`
	Run     RunCmd     `cmd:"" help:"Run scripts under a provenance collector, then trace them"`
	Bundle  BundleCmd  `cmd:"" help:"Pack a provenance directory into a .tar.xz bundle"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// TraceFlags are the options shared by trace and run.
type TraceFlags struct {
	Scripts []string `arg:"" help:"Scripts in execution order, or a file listing them"`
	ProvDir string   `name:"prov-dir" env:"PROVTRACE_PROV_DIR" help:"Provenance directory or bundle" type:"path"`
	Details bool     `name:"details" short:"d" help:"Show timestamps, hashes and saved copies"`
	Console bool     `name:"console" default:"true" negatable:"" help:"Print the report to stdout"`
	Save    bool     `name:"save" help:"Save the report to prov-trace.txt"`
	SaveDir string   `name:"save-dir" env:"PROVTRACE_SAVE_DIR" help:"Where to save: tmpdir, . or a directory"`
	Check   bool     `name:"check" help:"Compare files with the current filesystem"`
	Workers int      `name:"workers" help:"Parallel file checks (default from config)"`
	DB      string   `name:"db" help:"Append the lineage to this SQLite database" type:"path"`
}

// options merges the flags over cfg.
func (f *TraceFlags) options(cfg *config.Config) trace.Options {
	opts := trace.Options{
		Scripts: f.Scripts,
		ProvDir: f.ProvDir,
		Details: f.Details,
		Console: f.Console,
		Stdout:  stdout,
		Save:    f.Save,
		SaveDir: f.SaveDir,
		Check:   f.Check,
		Workers: f.Workers,
		DB:      f.DB,
	}
	if opts.ProvDir == "" {
		opts.ProvDir = cfg.ProvDir
	}
	if opts.SaveDir == "" {
		opts.SaveDir = cfg.SaveDir
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.Workers
	}
	return opts
}

// TraceCmd traces existing provenance.
type TraceCmd struct {
	TraceFlags `embed:""`
}

func (c *TraceCmd) Run(g *Globals) error {
	ctx, cfg, err := setup(g)
	if err != nil {
		return err
	}
	res, err := traceFn(ctx, c.options(cfg))
	if err != nil {
		return err
	}
	reportSaved(res)
	return nil
}

// RunCmd executes scripts and traces the fresh provenance.
type RunCmd struct {
	TraceFlags `embed:""`

	Tool         string        `name:"tool" short:"t" help:"Provenance collector (rdtLite, rdt)"`
	Rscript      string        `name:"rscript" help:"R interpreter"`
	Timeout      time.Duration `name:"timeout" help:"Per-script time limit"`
	SnapshotSize string        `name:"snapshot-size" help:"rdt snapshot.size option, e.g. 10 or Inf"`
}

func (c *RunCmd) Run(g *Globals) error {
	ctx, cfg, err := setup(g)
	if err != nil {
		return err
	}
	opts, err := c.runOptions(cfg)
	if err != nil {
		return err
	}
	res, err := runAndTraceFn(ctx, opts)
	if err != nil {
		return err
	}
	reportSaved(res)
	return nil
}

func (c *RunCmd) runOptions(cfg *config.Config) (trace.RunOptions, error) {
	tool := firstNonEmpty(c.Tool, cfg.Tool)
	backend, err := runner.ParseBackend(tool)
	if err != nil {
		return trace.RunOptions{}, err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.RunTimeout
	}
	return trace.RunOptions{
		Options: c.options(cfg),
		Backend: backend,
		Runner: runner.Config{
			Rscript: firstNonEmpty(c.Rscript, cfg.Rscript),
			Timeout: timeout,
		},
		SnapshotSize: firstNonEmpty(c.SnapshotSize, cfg.SnapshotSize),
	}, nil
}

// BundleCmd packs a provenance directory for tracing elsewhere.
type BundleCmd struct {
	ProvDir string `arg:"" help:"Provenance directory" type:"existingdir"`
	Output  string `arg:"" help:"Bundle path (.tar.xz)" type:"path"`
}

func (c *BundleCmd) Run(g *Globals) error {
	if _, _, err := setup(g); err != nil {
		return err
	}
	if !strings.HasSuffix(c.Output, ".tar.xz") {
		return fmt.Errorf("bundle path must end in .tar.xz: %s", c.Output)
	}
	if err := createBundle(c.ProvDir, c.Output, filepath.Base(c.ProvDir)); err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	fmt.Fprintf(stdout, "Bundled %s to %s\n", c.ProvDir, c.Output)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "provtrace version %s\n", version)
	return nil
}

// setup initialises logging and loads the configuration file.
func setup(g *Globals) (context.Context, *config.Config, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	logging.InitLogger(level, format, stderr)

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Path != "" {
		logging.Debug("configuration loaded", "path", cfg.Path)
	}
	return context.Background(), cfg, nil
}

func reportSaved(res *trace.Result) {
	if res.SavedTo != "" {
		fmt.Fprintf(stderr, "Results saved to %s\n", res.SavedTo)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("provtrace"),
		kong.Description("Trace file lineage across R scripts from recorded provenance"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
