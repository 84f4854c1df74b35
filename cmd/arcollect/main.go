package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/app"
	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/changes/amqpexport"
	"github.com/odyssey-erp/arcollect/internal/changes/pglisten"
	"github.com/odyssey-erp/arcollect/internal/changes/redisbus"
	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/collections/export"
	collectionshttp "github.com/odyssey-erp/arcollect/internal/collections/http"
	"github.com/odyssey-erp/arcollect/internal/observability"
	"github.com/odyssey-erp/arcollect/internal/view"
	"github.com/odyssey-erp/arcollect/jobs"
	"github.com/odyssey-erp/arcollect/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	logger := app.NewLogger(cfg, "arcollect")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("arcollect", slog.Any("error", err))
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

	metrics := observability.NewMetrics()

	hub := changes.NewHub(logger)
	defer hub.Close()
	metrics.ObserveDropped(hub.Dropped)
	metrics.ObserveSubscribers(hub.Subscribers)
	hub.AddRelay(changes.RelayFunc(func(_ context.Context, c changes.Change) error {
		metrics.ChangePublished(string(c.Op))
		return nil
	}))

	if backends.Redis != nil {
		bus := redisbus.New(backends.Redis, hub, logger)
		if err := bus.Start(ctx); err != nil {
			logger.Warn("redis change bus", slog.Any("error", err))
		} else {
			hub.AddRelay(bus)
		}
	}
	if cfg.PGListen && backends.Pool != nil && cfg.ActionsBackend == app.ActionsPostgres {
		listener := pglisten.New(cfg.PGDSN, hub, logger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("pg listener", slog.Any("error", err))
			}
		}()
	}
	if cfg.AMQPURL != "" {
		exporter, err := amqpexport.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("amqp export disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := exporter.Close(); err != nil {
					logger.Warn("amqp close", slog.Any("error", err))
				}
			}()
			hub.AddRelay(exporter)
			logger.Info("amqp export enabled", slog.String("exchange", cfg.AMQPExchange))
		}
	}
	if backends.Sheets != nil {
		go backends.Sheets.Run(ctx, cfg.SheetsRefresh)
	}

	actionsSvc := actions.NewService(backends.Actions, hub, logger)
	service := collections.NewService(backends.Metrics, actionsSvc, backends.Cache(cfg), logger)
	service.WithFallbackRecorder(metrics)

	unsubscribe := hub.Subscribe(changes.All, func(c changes.Change) {
		if err := service.Invalidate(ctx); err != nil {
			logger.Warn("invalidate snapshots", slog.String("division", c.Division.String()), slog.Any("error", err))
		}
	})
	defer unsubscribe()

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	reportClient := report.NewClient(cfg.GotenbergURL, report.WithWaitDelay(500*time.Millisecond))
	var pdf collectionshttp.PDFService
	if reportClient.Configured() {
		pdf = &export.PDFExporter{Renderer: reportClient}
	}

	handler := collectionshttp.NewHandler(logger, service, actionsSvc, templates, nil, pdf, hub)
	if auth := collectionshttp.NewBasicAuth(cfg.AdminUser, cfg.AdminPasswordHash); auth != nil {
		handler.WithAuth(auth)
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set, action changes are unauthenticated")
	}

	var jobHandler *jobs.Handler
	if cfg.RedisAddr != "" {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	deps := backends.Dependencies()
	deps = append(deps, app.Dependency{Name: "gotenberg", Ping: pingOrNil(reportClient.Configured(), reportClient.Ping)})
	if err := (app.Bootstrap{Logger: logger, Deps: deps}).Check(ctx); err != nil {
		return err
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CollectionsHandler: handler,
		ReportHandler:      report.NewHandler(reportClient, logger),
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	// Request contexts derive from baseCtx so cancelling it ends open event
	// streams before Shutdown waits on them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func pingOrNil(enabled bool, ping func(context.Context) error) func(context.Context) error {
	if !enabled {
		return nil
	}
	return ping
}
