package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Poxagronka/fireflies-summary/pkg/engine"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/queue"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// NewRunCommand creates the long-running service command: warm the store
// from Postgres, then drain the Redis intake queue on the poll interval.
func NewRunCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	var (
		debug       bool
		memoryOnly  bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the series detection service",
		Long: `Run the series detection service.

The service drains meeting payloads from the Redis intake queue on a fixed
interval, assigns each occurrence to a recurring series, resolves the most
recent transcript-ready prior occurrence, and persists series state to
PostgreSQL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, debug)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var repo engine.Persister
			if !memoryOnly {
				pgRepo, closePool, err := openRepository(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer closePool()
				repo = pgRepo
			}

			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			intake := queue.NewIntake(client, cfg.Redis.Key, log)

			reg := prometheus.NewRegistry()
			metrics := engine.NewMetrics(reg)

			st := store.New(cfg.Store, log)
			matcher := series.NewMatcher(cfg.Matcher, log)
			eng := engine.New(cfg.Engine, st, matcher, repo, intake, log, metrics)

			if err := eng.Warm(ctx, cfg.Store.MaxWindow); err != nil {
				return err
			}

			sched, err := engine.NewScheduler(eng, cfg.PollInterval, log)
			if err != nil {
				return err
			}

			metricsSrv := &http.Server{
				Addr:    metricsAddr,
				Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server failed", logging.Err(err))
				}
			}()

			log.Info("service started",
				logging.F("poll_interval", cfg.PollInterval),
				logging.F("metrics_addr", metricsAddr))
			sched.Start()

			<-ctx.Done()
			log.Info("shutting down")
			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "run without PostgreSQL persistence")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9290", "address for the Prometheus metrics endpoint")
	return cmd
}
