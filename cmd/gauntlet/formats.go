package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/gauntlet/internal/app"
)

// createFormatsCommand creates the command that lists report formats.
func createFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List report formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), app.Formats())
		},
	}
}
