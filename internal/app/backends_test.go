package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

func TestOpenBackendsMemoryAndSQLite(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := &Config{
		MetricsBackend: MetricsMemory,
		ActionsBackend: ActionsSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "actions.db"),
		RedisAddr:      srv.Addr(),
		CacheTTL:       time.Minute,
		SampleYear:     2024,
	}
	b, err := OpenBackends(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	assert.Nil(t, b.Pool)
	require.NotNil(t, b.SQLite)
	require.NotNil(t, b.Redis)
	require.NotNil(t, b.Cache(cfg))

	months, err := b.Metrics.Months(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-12", months[0])

	n, err := b.Actions.CountByMonth(context.Background(), collections.DivisionPPA,
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)

	var names []string
	for _, dep := range b.Dependencies() {
		names = append(names, dep.Name)
	}
	assert.Equal(t, []string{"redis", "sqlite"}, names)
	assert.NoError(t, Bootstrap{Deps: b.Dependencies()}.Check(context.Background()))
}

func TestOpenBackendsWithoutRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	cfg := &Config{
		MetricsBackend: MetricsMemory,
		ActionsBackend: ActionsSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "actions.db"),
		RedisAddr:      addr,
	}
	b, err := OpenBackends(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	assert.Nil(t, b.Redis)
	assert.Nil(t, b.Cache(cfg))
}
