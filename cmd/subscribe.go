package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSubscribeCommand creates the subscribe command. Subscriptions map a
// delivery channel to a series; they are purely administrative and never
// alter matching.
func NewSubscribeCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "subscribe <series-id> <channel>",
		Short: "Subscribe a delivery channel to a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(deps, func(ctx context.Context, r subscriptionRepo) error {
				if err := r.Subscribe(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "subscribed %s to series %s\n", args[1], args[0])
				return nil
			})
		},
	}
	return cmd
}

// NewUnsubscribeCommand creates the unsubscribe command.
func NewUnsubscribeCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "unsubscribe <series-id> <channel>",
		Short: "Unsubscribe a delivery channel from a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(deps, func(ctx context.Context, r subscriptionRepo) error {
				if err := r.Unsubscribe(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unsubscribed %s from series %s\n", args[1], args[0])
				return nil
			})
		},
	}
	return cmd
}

// subscriptionRepo is the slice of the repository the subscription commands
// need.
type subscriptionRepo interface {
	Subscribe(ctx context.Context, seriesID, channel string) error
	Unsubscribe(ctx context.Context, seriesID, channel string) error
}

// withRepository opens the repository, runs fn, and closes the pool.
func withRepository(deps *Deps, fn func(ctx context.Context, r subscriptionRepo) error) error {
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
	return fn(ctx, repo)
}
