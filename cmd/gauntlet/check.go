package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createCheckCommand creates the command that validates profiles.
func createCheckCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "check [PROFILE_DIR...]",
		Short:        "Load and compile profiles without running them",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, dirs, err := newApp(e, cmd, args)
			if err != nil {
				return err
			}

			results, err := a.Check(ctx, dirs)
			if err != nil {
				return err //nolint:wrapcheck // app errors carry context
			}
			for _, r := range results {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().String("log-level", "", "Log level")
	return cmd
}
