// Package app wires configuration, profile loading and the runner together
// for the command line.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/config"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/runner"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
	"github.com/wizzomafizzo/gauntlet/internal/profile"
	"github.com/wizzomafizzo/gauntlet/internal/report"
)

// App runs profiles with one configuration.
type App struct {
	fs        afero.Fs
	stdout    io.Writer
	lookupEnv profile.LookupEnvFunc
	config    *config.Config
	version   string
	runID     string
}

// Option configures an App.
type Option func(*App)

func WithFS(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

func WithStdout(w io.Writer) Option {
	return func(a *App) { a.stdout = w }
}

func WithLookupEnv(fn profile.LookupEnvFunc) Option {
	return func(a *App) { a.lookupEnv = fn }
}

func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

func WithRunID(id string) Option {
	return func(a *App) { a.runID = id }
}

// New creates an App. A nil config means the defaults.
func New(conf *config.Config, opts ...Option) *App {
	if conf == nil {
		conf = config.Default()
	}
	a := &App{
		config:    conf,
		fs:        afero.NewOsFs(),
		stdout:    os.Stdout,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) loader() *profile.Loader {
	return profile.NewLoader(a.fs, profile.WithLookupEnv(a.lookupEnv))
}

func (a *App) newRunner(out io.Writer, conf runner.Config) (*runner.Runner, error) {
	r, err := runner.New(conf, runner.WithFS(a.fs), runner.WithStdout(out))
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return r, nil
}

// ResolveDirs returns dirs, or the profile found from cwd when dirs is empty.
func (a *App) ResolveDirs(dirs []string, cwd string) ([]string, error) {
	if len(dirs) > 0 {
		return dirs, nil
	}
	root, err := a.loader().FindRoot(cwd)
	if err != nil {
		return nil, err //nolint:wrapcheck // names the search start
	}
	return []string{root}, nil
}

// Backend describes the machine the checks run on.
func Backend() report.Backend {
	return report.Backend{
		Name:     "local",
		Platform: report.Platform{Name: runtime.GOOS, Arch: runtime.GOARCH},
	}
}

// Exec loads every profile, runs its controls and writes the configured
// report. The returned status is the run's exit status.
func (a *App) Exec(ctx context.Context, dirs []string) (int, error) {
	logger := logging.Get(ctx)

	profiles, err := a.loader().LoadAll(ctx, dirs)
	if err != nil {
		return 1, fmt.Errorf("failed to load profiles: %w", err)
	}

	order, err := a.config.Ordering()
	if err != nil {
		return 1, fmt.Errorf("invalid order: %w", err)
	}

	r, err := a.newRunner(a.stdout, runner.Config{
		Order:       order,
		Output:      a.config.Output,
		Format:      a.config.Format,
		MetricsFile: a.config.MetricsFile,
		Version:     a.version,
		RunID:       a.runID,
		Color:       a.config.Color,
		Report:      a.config.Report,
	})
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close output")
		}
	}()

	r.SetBackend(Backend())
	for _, p := range profiles {
		r.AddProfile(p.ToReport())
		for _, rl := range p.Rules {
			if err := r.AddRule(ctx, rl); err != nil {
				return 1, fmt.Errorf("profile %s: %w", p.Name, err)
			}
		}
	}

	logger.Info().
		Int("profiles", len(profiles)).
		Str("order", order.String()).
		Str("format", a.config.Format).
		Msg("executing profiles")

	return r.Run(ctx, nil), nil
}

// CheckResult summarizes one profile that loaded and compiled.
type CheckResult struct {
	Name     string
	Version  string
	Digest   string
	Controls int
	Groups   int
}

func (c CheckResult) String() string {
	name := c.Name
	if c.Version != "" {
		name += " " + c.Version
	}
	return fmt.Sprintf("%s: %d controls, %d test groups (digest %s)", name, c.Controls, c.Groups, c.Digest)
}

// Check loads and compiles every profile without running the registered
// groups. describe_one alternatives are still probed while compiling.
func (a *App) Check(ctx context.Context, dirs []string) ([]CheckResult, error) {
	profiles, err := a.loader().LoadAll(ctx, dirs)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	r, err := a.newRunner(io.Discard, runner.Config{Format: report.DefaultFormat})
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	results := make([]CheckResult, 0, len(profiles))
	for _, p := range profiles {
		if err := r.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset runner: %w", err)
		}
		for _, rl := range p.Rules {
			if err := r.AddRule(ctx, rl); err != nil {
				return nil, fmt.Errorf("profile %s: %w", p.Name, err)
			}
		}
		results = append(results, CheckResult{
			Name:     p.Name,
			Version:  p.Version,
			Digest:   p.Digest,
			Controls: len(p.Rules),
			Groups:   len(r.Tests()),
		})
	}
	return results, nil
}

// Formats lists the accepted format names, one per line.
func Formats() string {
	return strings.Join(report.Names(), "\n") + "\n"
}
