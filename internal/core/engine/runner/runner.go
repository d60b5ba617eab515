// Package runner compiles rules into a registry and drives their execution
// through pluggable spec runners and formatters.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/compiler"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/registry"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
	"github.com/wizzomafizzo/gauntlet/internal/report"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
)

// Config selects output, format and extra formatters for a run.
type Config struct {
	Order registry.Ordering
	// Output is "-" or empty for stdout, otherwise a file path.
	Output      string
	Format      string
	MetricsFile string
	Version     string
	RunID       string
	Color       bool
	Report      bool
}

// Runner owns the registry and run context of one run at a time.
type Runner struct {
	fs        afero.Fs
	stdout    io.Writer
	provider  rule.Provider
	world     *registry.World
	rc        *RunContext
	formatter report.Formatter
	conf      Config
}

// Option configures a Runner.
type Option func(*Runner)

// WithFS sets the filesystem used to create output files.
func WithFS(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithStdout replaces standard output for the "-" output.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) { r.stdout = w }
}

// WithProvider sets the rule provider. The default reads rules as declared.
func WithProvider(p rule.Provider) Option {
	return func(r *Runner) { r.provider = p }
}

// New creates a Runner with an empty registry and configured output.
func New(conf Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		conf:     conf,
		fs:       afero.NewOsFs(),
		stdout:   os.Stdout,
		provider: rule.DefaultProvider{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset empties the registry and replaces the run context, so formatters,
// counters and profiles from a previous run are gone.
func (r *Runner) Reset() error {
	if r.rc != nil {
		if err := r.rc.close(); err != nil {
			return fmt.Errorf("failed to close previous output: %w", err)
		}
	}
	r.world = registry.New(r.provider, registry.WithOrdering(r.conf.Order))
	return r.configureOutput()
}

func (r *Runner) configureOutput() error {
	rc := &RunContext{Color: r.conf.Color}

	if r.conf.Output == "" || r.conf.Output == constants.StdoutOutput {
		rc.Output = r.stdout
	} else {
		f, err := r.fs.Create(r.conf.Output)
		if err != nil {
			return fmt.Errorf("failed to open output %s: %w", r.conf.Output, err)
		}
		rc.Output = f
		rc.closers = append(rc.closers, f)
	}

	opts := report.Options{Version: r.conf.Version, RunID: r.conf.RunID, Color: r.conf.Color}
	formatter, err := report.New(r.conf.Format, rc.Output, opts)
	if err != nil {
		_ = rc.close()
		return fmt.Errorf("failed to configure output: %w", err)
	}
	rc.Formatters = append(rc.Formatters, formatter)

	if r.conf.Report {
		rc.Formatters = append(rc.Formatters, report.NewReporter(opts))
	}
	if r.conf.MetricsFile != "" {
		rc.Formatters = append(rc.Formatters, report.NewMetrics(r.fs, r.conf.MetricsFile))
	}

	r.rc = rc
	r.formatter = formatter
	return nil
}

// AddProfile hands profile metadata to every formatter that renders it.
func (r *Runner) AddProfile(p report.Profile) {
	for _, f := range r.rc.Formatters {
		if pr, ok := f.(report.ProfileReceiver); ok {
			pr.AddProfile(p)
		}
	}
}

// SetBackend hands the target description to every formatter that renders it.
func (r *Runner) SetBackend(b report.Backend) {
	for _, f := range r.rc.Formatters {
		if br, ok := f.(report.BackendReceiver); ok {
			br.SetBackend(b)
		}
	}
}

// AddRule compiles every check of rl and registers the resulting groups.
// Groups compiled from earlier checks of a failing rule are not registered.
func (r *Runner) AddRule(ctx context.Context, rl *rule.Rule) error {
	checks, err := r.provider.PrepareChecks(rl)
	if err != nil {
		return fmt.Errorf("failed to prepare checks: %w", err)
	}

	logger := logging.Get(ctx).With().
		Str("rule_id", r.provider.RuleID(rl)).
		Str("profile_id", r.provider.ProfileID(rl)).
		Logger()

	var groups []*unit.Group
	for i, c := range checks {
		compiled, err := compiler.Compile(ctx, c.Kind, c.Args, c.Body)
		if err != nil {
			logger.Error().Err(err).Int("check", i).Str("kind", string(c.Kind)).Msg("failed to compile check")
			return fmt.Errorf("rule %s: check %d: %w", r.provider.RuleID(rl), i, err)
		}
		for _, g := range compiled {
			if g != nil {
				groups = append(groups, g)
			}
		}
	}

	for _, g := range groups {
		r.AddTest(g, rl)
	}
	logger.Debug().Int("checks", len(checks)).Int("groups", len(groups)).Msg("rule added")
	return nil
}

// AddTest registers a compiled group under rl.
func (r *Runner) AddTest(g *unit.Group, rl *rule.Rule) {
	r.world.Add(g, rl)
}

// Tests returns the registered groups in execution order.
func (r *Runner) Tests() []*unit.Group {
	return r.world.List()
}

// Run executes every registered group with with, or Sequential when nil.
func (r *Runner) Run(ctx context.Context, with SpecRunner) int {
	if with == nil {
		with = Sequential{}
	}
	tests := r.Tests()
	status := with.RunSpecs(ctx, tests, r.rc)
	logging.Get(ctx).Info().Int("groups", len(tests)).Int("status", status).Msg("run finished")
	return status
}

// Report returns the structured output of the configured format, or of the
// attached reporter when the format cannot produce one. ok is false when no
// formatter can.
func (r *Runner) Report() (*report.Output, bool) {
	if o, ok := r.formatter.(report.Outputter); ok {
		return o.Output(), true
	}
	for _, f := range r.rc.Formatters {
		if o, ok := f.(report.Outputter); ok {
			return o.Output(), true
		}
	}
	return nil, false
}

// Context returns the current run context.
func (r *Runner) Context() *RunContext {
	return r.rc
}

// Close releases output files.
func (r *Runner) Close() error {
	return r.rc.close()
}
