package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Poxagronka/fireflies-summary/pkg/series"
)

// NewSeriesCommand creates the series inspection command family.
func NewSeriesCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Inspect detected meeting series",
	}
	cmd.AddCommand(newSeriesListCommand(deps))
	cmd.AddCommand(newSeriesShowCommand(deps))
	return cmd
}

func newSeriesListCommand(deps *Deps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all detected series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, false)
			ctx := context.Background()

			repo, closePool, err := openRepository(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closePool()

			all, err := repo.LoadAll(ctx, cfg.Store.MaxWindow)
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(all, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			for _, s := range all {
				flag := ""
				if s.Provisional {
					flag = " (provisional)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s %-9s %3d occurrences  confidence %.2f%s\n",
					s.ID, s.Name, s.Cadence, len(s.History), s.Confidence, flag)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print series as JSON")
	return cmd
}

func newSeriesShowCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <series-id>",
		Short: "Show one series with its occurrence history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, false)
			ctx := context.Background()

			repo, closePool, err := openRepository(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closePool()

			s, err := repo.GetSeriesRow(ctx, args[0])
			if err != nil {
				return err
			}
			all, err := repo.LoadAll(ctx, cfg.Store.MaxWindow)
			if err != nil {
				return err
			}
			for _, candidate := range all {
				if candidate.ID == s.ID {
					s.History = candidate.History
					break
				}
			}

			printSeries(cmd, s)

			channels, err := repo.Subscriptions(ctx, s.ID)
			if err == nil && len(channels) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "subscribed channels: %v\n", channels)
			}
			return nil
		},
	}
	return cmd
}

func printSeries(cmd *cobra.Command, s series.Series) {
	fmt.Fprintf(cmd.OutOrStdout(), "series:    %s\n", s.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "name:      %s\n", s.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "title key: %s\n", s.TitleKey)
	fmt.Fprintf(cmd.OutOrStdout(), "cadence:   %s\n", s.Cadence)
	fmt.Fprintf(cmd.OutOrStdout(), "confidence: %.2f (provisional=%t)\n", s.Confidence, s.Provisional)
	fmt.Fprintf(cmd.OutOrStdout(), "occurrences:\n")
	for _, occ := range s.History {
		ready := " "
		if occ.TranscriptReady {
			ready = "T"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s  %s  %d attendees\n",
			ready, occ.StartTime.Format("2006-01-02 15:04"), occ.ID, len(occ.Attendees))
	}
}
