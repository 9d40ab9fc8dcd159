package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Poxagronka/fireflies-summary/pkg/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := buildinfo.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "fireflies-summary %s\n", buildinfo.String())
			fmt.Fprintf(cmd.OutOrStdout(), "go: %s\n", info.GoVersion)
		},
	}
}
