package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpyw/probeguard"
	"github.com/mpyw/probeguard/internal/callgraph"
	"github.com/mpyw/probeguard/internal/classfile"
	"github.com/mpyw/probeguard/internal/config"
	"github.com/mpyw/probeguard/internal/logging"
	"github.com/mpyw/probeguard/internal/messages"
	"github.com/mpyw/probeguard/internal/metrics"
	"github.com/mpyw/probeguard/internal/registry"
	"github.com/mpyw/probeguard/probe"
	"github.com/mpyw/probeguard/unit"
)

const (
	exitInput     = 1
	exitViolation = 2
)

type options struct {
	configPath      string
	lenient         bool
	allow           []string
	targetsFile     string
	messagesPath    string
	logLevel        string
	metricsTextfile string
	json            bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "probeguard [flags] <unit>...",
		Short: "Verify trace handler programs before they are deployed",
		Long: `probeguard checks that compiled trace handler programs stay within the
safe subset accepted by the tracing agent and prints the probe bindings
each program declares.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return execute(cmd, args, &opts, stdout, stderr)
		},
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	f.BoolVar(&opts.lenient, "lenient", false, "report every violation instead of stopping at the first")
	f.StringArrayVar(&opts.allow, "allow", nil, "additional allowed call target such as com/example/Util.format (repeatable)")
	f.StringVar(&opts.targetsFile, "targets", "", "path to a YAML file listing additional allowed call targets")
	f.StringVar(&opts.messagesPath, "messages", "", "path to a YAML file overriding diagnostic messages")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	f.BoolVar(&opts.json, "json", false, "print reports as JSON")

	return cmd
}

// loadConfig merges the configuration file with explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("lenient") {
		cfg.Mode = config.ModeStrict
		if opts.lenient {
			cfg.Mode = config.ModeLenient
		}
	}
	if flags.Changed("targets") {
		cfg.TargetsFile = opts.targetsFile
	}
	if flags.Changed("messages") {
		cfg.Messages = opts.messagesPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	cfg.AllowedTargets = append(cfg.AllowedTargets, opts.allow...)

	return cfg, cfg.Validate()
}

func execute(cmd *cobra.Command, args []string, opts *options, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}
	logger := logging.New(stderr, logging.Options{Level: level})

	catalog := messages.Default()
	if cfg.Messages != "" {
		if catalog, err = messages.Load(cfg.Messages); err != nil {
			return &exitError{code: exitInput, err: err}
		}
	}

	reg, err := loadRegistry(&cfg)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}
	policy, err := callgraph.ParsePolicy(cfg.CyclePolicy)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}

	var rec *metrics.Recorder
	if opts.metricsTextfile != "" {
		rec = metrics.New()
	}

	units, err := loadUnits(args, logger)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}

	v := probeguard.New(
		probeguard.WithStrict(cfg.Strict()),
		probeguard.WithRegistry(reg),
		probeguard.WithCyclePolicy(policy),
		probeguard.WithParallelism(cfg.Parallelism),
		probeguard.WithLogger(logger),
		probeguard.WithMetrics(rec),
	)

	outcomes, err := v.VerifyAll(cmd.Context(), units)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}

	reports, err := buildReports(units, outcomes, catalog)
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		printReports(stdout, reports)
	}

	if rec != nil {
		if err := rec.WriteTextfile(opts.metricsTextfile); err != nil {
			return &exitError{code: exitInput, err: fmt.Errorf("failed to write metrics: %w", err)}
		}
	}

	for _, r := range reports {
		if !r.OK {
			return &exitError{code: exitViolation}
		}
	}
	return nil
}

// loadRegistry combines the builtin targets with the targets file and the
// inline allowed targets.
func loadRegistry(cfg *config.Config) (*probeguard.Registry, error) {
	specs := registry.Builtin()

	if cfg.TargetsFile != "" {
		fromFile, err := registry.LoadFile(cfg.TargetsFile)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}

	inline, err := registry.ParseAll(cfg.AllowedTargets)
	if err != nil {
		return nil, err
	}
	return registry.New(append(specs, inline...)...), nil
}

// classPath resolves a unit argument to a class file path.
func classPath(arg string) string {
	if strings.HasSuffix(arg, ".class") {
		return arg
	}
	return filepath.FromSlash(unit.InternalName(arg)) + ".class"
}

// loadUnits resolves and decodes every argument before any verification starts.
func loadUnits(args []string, logger *slog.Logger) ([]*unit.Unit, error) {
	units := make([]*unit.Unit, 0, len(args))
	for _, arg := range args {
		path := classPath(arg)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file '%s' does not exist", path)
		}

		u, err := classfile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded unit", "path", path, "unit", u.Name, "methods", len(u.Methods))
		units = append(units, u)
	}
	return units, nil
}

type report struct {
	Unit        string             `json:"unit"`
	OK          bool               `json:"ok"`
	OnMethods   []probe.OnMethod   `json:"on_methods,omitempty"`
	OnProbes    []probe.OnProbe    `json:"on_probes,omitempty"`
	Diagnostics []diagnosticReport `json:"diagnostics,omitempty"`
}

type diagnosticReport struct {
	Kind    probeguard.DiagnosticKind `json:"kind"`
	Code    string                    `json:"code"`
	Detail  string                    `json:"detail,omitempty"`
	Message string                    `json:"message"`
}

func buildReports(units []*unit.Unit, outcomes []probeguard.Outcome, catalog *messages.Catalog) ([]report, error) {
	reports := make([]report, len(outcomes))

	for i, o := range outcomes {
		r := report{Unit: unit.DottedName(units[i].Name)}

		var diags []*probeguard.Diagnostic
		switch {
		case o.Err != nil:
			var d *probeguard.Diagnostic
			if !errors.As(o.Err, &d) {
				return nil, fmt.Errorf("%s: %w", r.Unit, o.Err)
			}
			diags = []*probeguard.Diagnostic{d}
		default:
			r.OnMethods = o.Result.OnMethods
			r.OnProbes = o.Result.OnProbes
			diags = o.Result.Diagnostics
		}

		for _, d := range diags {
			r.Diagnostics = append(r.Diagnostics, diagnosticReport{
				Kind:    d.Kind,
				Code:    d.Code,
				Detail:  d.Detail,
				Message: catalog.Resolve(d.Code, d.Detail),
			})
		}
		r.OK = len(r.Diagnostics) == 0
		reports[i] = r
	}

	return reports, nil
}

func printReports(w io.Writer, reports []report) {
	for _, r := range reports {
		if r.OK {
			fmt.Fprintf(w, "%s: ok (%d method probes, %d named probes)\n", r.Unit, len(r.OnMethods), len(r.OnProbes))
			continue
		}
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "%s: %s\n", r.Unit, d.Message)
		}
	}
}
