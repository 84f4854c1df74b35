package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/arcollect/cmd/arcollectctl/cli"
	"github.com/odyssey-erp/arcollect/internal/app"
	collectionsdb "github.com/odyssey-erp/arcollect/internal/collections/db"
	"github.com/odyssey-erp/arcollect/internal/collections/memory"
	"github.com/odyssey-erp/arcollect/internal/platform/db"
	"github.com/odyssey-erp/arcollect/internal/platform/migrations"
	"github.com/odyssey-erp/arcollect/jobs"
	"github.com/odyssey-erp/arcollect/report"
)

type configLoader func() (*app.Config, error)

func loadConfig() (*app.Config, error) {
	return app.LoadConfig()
}

func newRootCommand(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "arcollectctl",
		Short:         "Operator commands for the collections dashboard",
		SilenceUsage:  true,
	}
	root.AddCommand(
		newMigrateCommand(load),
		newSeedCommand(load),
		newWarmupCommand(load),
		newQueueCommand(load),
		newPingCommand(load),
	)
	return root
}

func newMigrateCommand(load configLoader) *cobra.Command {
	var sqlitePath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sqlitePath != "" {
				if err := migrations.UpSQLite(sqlitePath); err != nil {
					return err
				}
				cmd.Printf("sqlite migrations applied to %s\n", sqlitePath)
				return nil
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrations.UpPostgres(pool); err != nil {
				return err
			}
			version, dirty, err := migrations.Version(pool)
			if err != nil {
				return err
			}
			cmd.Printf("postgres at version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "migrate the SQLite actions database at this path instead of Postgres")
	return cmd
}

func newSeedCommand(load configLoader) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a year of sample receivables into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year < 2000 || year > 2100 {
				return fmt.Errorf("seed: year %d out of range", year)
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrations.UpPostgres(pool); err != nil {
				return err
			}
			trends, customers := memory.SampleData(year)
			res, err := collectionsdb.Seed(cmd.Context(), pool, trends, customers)
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d trend rows and %d customer rows for %d\n", res.Trends, res.Customers, year)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 2024, "sample report year")
	return cmd
}

func newWarmupCommand(load configLoader) *cobra.Command {
	var payload jobs.WarmupPayload
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Enqueue a snapshot cache warmup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := payload.Validate(); err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			jc := cli.NewJobsCLI(cfg.RedisAddr)
			defer jc.Close()
			info, err := jc.TriggerWarmup(cmd.Context(), payload)
			if err != nil {
				return err
			}
			if info == nil {
				cmd.Println("an identical warmup is already queued")
				return nil
			}
			cmd.Printf("enqueued %s on %s (id %s)\n", info.Type, info.Queue, info.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&payload.Month, "month", "", "report month (YYYY-MM), defaults to the latest")
	cmd.Flags().StringVar(&payload.Division, "division", "", "division (PPA, MCS, EPM), defaults to all")
	cmd.Flags().BoolVar(&payload.Invalidate, "invalidate", false, "drop cached snapshots first")
	return cmd
}

func newQueueCommand(load configLoader) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show job queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			jc := cli.NewJobsCLI(cfg.RedisAddr)
			defer jc.Close()
			stats, err := jc.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
			if size == 0 {
				return nil
			}
			scheduled, err := jc.ListScheduled(cmd.Context(), size)
			if err != nil {
				return err
			}
			for _, t := range scheduled {
				cmd.Printf("  %s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "scheduled", 0, "also list up to this many scheduled tasks")
	return cmd
}

func newPingCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to every configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.OutOrStdout(), nil))
			backends, err := app.OpenBackends(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()

			deps := backends.Dependencies()
			if client := report.NewClient(cfg.GotenbergURL); client.Configured() {
				deps = append(deps, app.Dependency{Name: "gotenberg", Ping: client.Ping})
			}
			return app.Bootstrap{Logger: logger, Timeout: 3 * time.Second, Deps: deps}.Check(cmd.Context())
		},
	}
}

