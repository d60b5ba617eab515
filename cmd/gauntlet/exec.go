package main

import (
	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
)

// createExecCommand creates the command that runs profiles.
func createExecCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "exec [PROFILE_DIR...]",
		Short:        "Run the controls of one or more profiles",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, dirs, err := newApp(e, cmd, args)
			if err != nil {
				return err
			}

			status, err := a.Exec(ctx, dirs)
			if err != nil {
				return err //nolint:wrapcheck // app errors carry context
			}
			if status != 0 {
				return &ExitError{Code: status}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("format", "f", "", "Output format (see formats)")
	flags.StringP("output", "o", constants.StdoutOutput, "Write the report to a file instead of stdout")
	flags.String("order", "", "Execution order: defined, random or random:<seed>")
	flags.Bool("color", false, "Colorize cli output")
	flags.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.String("log-level", "", "Log level")

	return cmd
}
