// Package main provides the fireflies-summary entry point: a service that
// groups observed meetings into recurring series and resolves the previous
// occurrence to summarize from.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Poxagronka/fireflies-summary/cmd"
)

func main() {
	root := &cobra.Command{
		Use:   "fireflies-summary",
		Short: "Meeting series detection and previous-occurrence resolution",
		Long: `fireflies-summary groups meetings into recurring series (daily standups,
weekly 1:1s, monthly reviews) purely from observed metadata - titles,
timestamps, attendee lists and topics - and resolves the most recent
transcript-ready prior occurrence of each series for summary context.`,
		SilenceUsage: true,
	}

	deps := cmd.DefaultDeps()
	root.AddCommand(cmd.NewRunCommand(deps))
	root.AddCommand(cmd.NewMatchCommand(deps))
	root.AddCommand(cmd.NewSeriesCommand(deps))
	root.AddCommand(cmd.NewSubscribeCommand(deps))
	root.AddCommand(cmd.NewUnsubscribeCommand(deps))
	root.AddCommand(cmd.NewVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
