package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/app"
	"github.com/odyssey-erp/arcollect/internal/changes/amqpexport"
	"github.com/odyssey-erp/arcollect/internal/collections"
	jobmetrics "github.com/odyssey-erp/arcollect/internal/jobs"
	"github.com/odyssey-erp/arcollect/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", slog.Any("error", err))
		}
	}()
	if backends.Redis == nil {
		return errors.New("worker: redis is required for the job queue")
	}
	if err := (app.Bootstrap{Logger: logger, Deps: backends.Dependencies()}).Check(ctx); err != nil {
		return err
	}
	if backends.Sheets != nil {
		go backends.Sheets.Run(ctx, cfg.SheetsRefresh)
	}

	// The worker only reads actions for pending counts, so it publishes nothing.
	actionsSvc := actions.NewService(backends.Actions, nil, logger)
	service := collections.NewService(backends.Metrics, actionsSvc, backends.Cache(cfg), logger)

	metrics := jobmetrics.NewMetrics(nil)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts, metrics)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	if cfg.AMQPURL != "" {
		consumer, err := amqpexport.DialConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("amqp consumer disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := consumer.Close(); err != nil {
					logger.Warn("amqp consumer close", slog.Any("error", err))
				}
			}()
			go func() {
				if err := consumer.Consume(ctx, client.OnChange()); err != nil && ctx.Err() == nil {
					logger.Error("amqp consume", slog.Any("error", err))
				}
			}()
		}
	}

	warmupTask, err := jobs.NewWarmupTask(jobs.WarmupPayload{})
	if err != nil {
		return err
	}
	warmupJob := jobs.NewWarmupJob(service, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		return err
	}
	logger.Info("starting worker", slog.String("warmup_cron", cfg.WarmupCron))
	return worker.Run(ctx)
}
