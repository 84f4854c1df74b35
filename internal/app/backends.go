package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/arcollect/internal/actions"
	actionsqlite "github.com/odyssey-erp/arcollect/internal/actions/sqlite"
	"github.com/odyssey-erp/arcollect/internal/collections"
	collectionsdb "github.com/odyssey-erp/arcollect/internal/collections/db"
	"github.com/odyssey-erp/arcollect/internal/collections/memory"
	"github.com/odyssey-erp/arcollect/internal/collections/sheets"
	"github.com/odyssey-erp/arcollect/internal/platform/cache"
	"github.com/odyssey-erp/arcollect/internal/platform/db"
	"github.com/odyssey-erp/arcollect/internal/platform/migrations"
	platformsqlite "github.com/odyssey-erp/arcollect/internal/platform/sqlite"
)

// Backends holds the clients selected by configuration. Fields for backends
// that are not in use stay nil.
type Backends struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	SQLite  *sql.DB
	Sheets  *sheets.Source
	Metrics collections.Repository
	Actions actions.Store
}

// OpenBackends connects every backend the configuration selects. Redis is
// optional: without it the snapshot cache and the redis change bus are off.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	fail := func(err error) (*Backends, error) {
		b.Close()
		return nil, err
	}

	if cfg.NeedsPostgres() {
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
		if err != nil {
			return fail(err)
		}
		b.Pool = pool
		if cfg.RunMigrations {
			if err := migrations.UpPostgres(pool); err != nil {
				return fail(err)
			}
		}
	}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, snapshot cache disabled", slog.Any("error", err))
		} else {
			b.Redis = client
		}
	}

	switch cfg.MetricsBackend {
	case MetricsPostgres:
		b.Metrics = collectionsdb.NewRepository(b.Pool)
	case MetricsSheets:
		svc, err := sheets.NewService(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return fail(err)
		}
		src := sheets.New(svc, cfg.SheetsSpreadsheetID, logger)
		if err := src.Refresh(ctx); err != nil {
			logger.Error("initial sheets load", slog.Any("error", err))
		}
		b.Sheets = src
		b.Metrics = src
	case MetricsMemory:
		b.Metrics = memory.NewSample(cfg.SampleYear)
	default:
		return fail(fmt.Errorf("app: unknown metrics backend %q", cfg.MetricsBackend))
	}

	switch cfg.ActionsBackend {
	case ActionsPostgres:
		b.Actions = actions.NewRepository(b.Pool)
	case ActionsSQLite:
		sqlDB, err := platformsqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fail(err)
		}
		b.SQLite = sqlDB
		b.Actions = actionsqlite.New(sqlDB)
	default:
		return fail(fmt.Errorf("app: unknown actions backend %q", cfg.ActionsBackend))
	}
	return b, nil
}

// Cache returns the snapshot cache, or nil when Redis is not connected.
func (b *Backends) Cache(cfg *Config) *collections.Cache {
	if b.Redis == nil {
		return nil
	}
	return collections.NewCache(b.Redis, cfg.CacheTTL)
}

// Dependencies lists the connected backends for the startup check.
func (b *Backends) Dependencies() []Dependency {
	var deps []Dependency
	if b.Pool != nil {
		deps = append(deps, Dependency{Name: "postgres", Required: true, Ping: b.Pool.Ping})
	}
	if b.Redis != nil {
		deps = append(deps, Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return cache.Ping(ctx, b.Redis)
		}})
	}
	if b.SQLite != nil {
		deps = append(deps, Dependency{Name: "sqlite", Required: true, Ping: b.SQLite.PingContext})
	}
	if b.Sheets != nil {
		deps = append(deps, Dependency{Name: "sheets", Ping: b.Sheets.Ping})
	}
	return deps
}

// Close releases every open backend.
func (b *Backends) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.SQLite != nil {
		errs = append(errs, b.SQLite.Close())
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	return errors.Join(errs...)
}
