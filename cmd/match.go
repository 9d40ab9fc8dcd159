package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Poxagronka/fireflies-summary/pkg/engine"
	"github.com/Poxagronka/fireflies-summary/pkg/ingest"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// NewMatchCommand creates the one-shot match command: read calendar event
// JSON from a file, match against an empty (or warmed) store, and print the
// assignments. Useful for tuning thresholds against exported calendar data.
func NewMatchCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	var (
		debug  bool
		asJSON bool
		usePG  bool
	)

	cmd := &cobra.Command{
		Use:   "match <events.json>",
		Short: "Match calendar events against known series",
		Long: `Match calendar events against known series.

The input file holds a JSON array of calendar events. Events are validated,
matched in file order, and the resulting assignments printed. With --postgres
the store is warmed from the configured database first; otherwise matching
starts from an empty store and every first occurrence creates a new series.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, debug)
			ctx := context.Background()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading events file: %w", err)
			}
			var events []ingest.CalendarEvent
			if err := json.Unmarshal(data, &events); err != nil {
				return fmt.Errorf("parsing events file: %w", err)
			}

			occs := make([]series.Occurrence, 0, len(events))
			for _, ev := range events {
				occ, err := ingest.FromCalendarEvent(ev)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping invalid event: %v\n", err)
					continue
				}
				occs = append(occs, occ)
			}

			var repo engine.Persister
			if usePG {
				pgRepo, closePool, err := openRepository(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer closePool()
				repo = pgRepo
			}

			st := store.New(cfg.Store, log)
			matcher := series.NewMatcher(cfg.Matcher, log)
			eng := engine.New(cfg.Engine, st, matcher, repo, nil, log, nil)
			if err := eng.Warm(ctx, cfg.Store.MaxWindow); err != nil {
				return err
			}

			// Sequential so assignments print in file order and earlier
			// events seed series for later ones.
			for _, occ := range occs {
				a := eng.ProcessOccurrence(ctx, occ)
				printAssignment(cmd, a, asJSON)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print assignments as JSON")
	cmd.Flags().BoolVar(&usePG, "postgres", false, "warm the store from PostgreSQL and persist results")
	return cmd
}

// printAssignment renders one assignment in text or JSON form.
func printAssignment(cmd *cobra.Command, a engine.Assignment, asJSON bool) {
	if asJSON {
		out, _ := json.Marshal(assignmentView(a))
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return
	}

	if a.Err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ERROR %v\n", a.OccurrenceID, a.Err)
		return
	}
	label := "attached"
	if a.IsNew {
		label = "new series"
	} else if a.Provisional {
		label = "provisional"
	}
	prev := "none"
	if a.Previous != nil {
		prev = fmt.Sprintf("%s (%s)", a.Previous.ID, a.Previous.StartTime.Format("2006-01-02"))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (confidence %.2f, previous %s)\n",
		a.OccurrenceID, label, a.SeriesID, a.Confidence, prev)
}

// assignmentView is the JSON shape for an assignment.
func assignmentView(a engine.Assignment) map[string]interface{} {
	view := map[string]interface{}{
		"occurrence_id": a.OccurrenceID,
		"series_id":     a.SeriesID,
		"confidence":    a.Confidence,
		"is_new":        a.IsNew,
		"provisional":   a.Provisional,
	}
	if a.Err != nil {
		view["error"] = a.Err.Error()
	}
	if a.Previous != nil {
		view["previous_occurrence_id"] = a.Previous.ID
		view["previous_start"] = a.Previous.StartTime
	}
	return view
}
