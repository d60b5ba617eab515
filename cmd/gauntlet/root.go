package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/gauntlet/internal/app"
	"github.com/wizzomafizzo/gauntlet/internal/config"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
)

var version = "dev"

// ExitError carries the status of a run that completed with failures.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("run finished with status %d", e.Code)
}

type env struct {
	fs     afero.Fs
	getwd  func() (string, error)
	logCtx func(conf *config.Config, runID string) (context.Context, error)
}

func defaultEnv() *env {
	fs := afero.NewOsFs()
	return &env{
		fs:    fs,
		getwd: os.Getwd,
		logCtx: func(conf *config.Config, runID string) (context.Context, error) {
			return initLogging(fs, conf, runID)
		},
	}
}

// createNewRootCommand creates the main root command that shows help by default.
func createNewRootCommand() *cobra.Command {
	return newRootCommand(defaultEnv())
}

func newRootCommand(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     constants.AppName,
		Short:   "Compliance profile runner",
		Version: version,
		// main prints errors and maps ExitError to the exit status
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", constants.ConfigFilename, "Path to config file")

	rootCmd.AddCommand(
		createExecCommand(e),
		createCheckCommand(e),
		createFormatsCommand(),
	)

	return rootCmd
}

// initLogging attaches the file logger configured by conf.
func initLogging(fs afero.Fs, conf *config.Config, runID string) (context.Context, error) {
	level, err := logging.ParseLevel(conf.Logging.Level)
	if err != nil {
		return nil, err //nolint:wrapcheck // already validated by config
	}
	ctx, err := logging.New(context.Background(), fs, logging.Config{
		Path:  conf.Logging.Path,
		RunID: runID,
		Level: level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return ctx, nil
}

// loadConfig reads --config and applies flag overrides.
func loadConfig(e *env, cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	conf, err := config.Load(e.fs, configPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // config errors name the file
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		conf.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		conf.Output, _ = flags.GetString("output")
	}
	if flags.Changed("order") {
		conf.Order, _ = flags.GetString("order")
	}
	if flags.Changed("color") {
		conf.Color, _ = flags.GetBool("color")
	}
	if flags.Changed("metrics-file") {
		conf.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("log-level") {
		conf.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return conf, nil
}

// newApp loads config, starts logging and builds the app for one command.
// dirs is args, or the profile found from the working directory.
func newApp(e *env, cmd *cobra.Command, args []string) (ctx context.Context, a *app.App, dirs []string, err error) {
	conf, err := loadConfig(e, cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	runID := uuid.NewString()
	ctx, err = e.logCtx(conf, runID)
	if err != nil {
		return nil, nil, nil, err
	}

	a = app.New(conf,
		app.WithFS(e.fs),
		app.WithStdout(cmd.OutOrStdout()),
		app.WithVersion(version),
		app.WithRunID(runID),
	)

	cwd, err := e.getwd()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	dirs, err = a.ResolveDirs(args, cwd)
	if err != nil {
		return nil, nil, nil, err //nolint:wrapcheck // names the search start
	}
	return ctx, a, dirs, nil
}
