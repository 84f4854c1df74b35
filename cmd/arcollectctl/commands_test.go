package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/app"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

var errNoConfig = errors.New("config not loaded")

func failingLoader() (*app.Config, error) { return nil, errNoConfig }

func execute(t *testing.T, load configLoader, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(load)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootListsCommands(t *testing.T) {
	out, err := execute(t, failingLoader, "--help")
	require.NoError(t, err)
	for _, name := range []string{"migrate", "seed", "warmup", "queue", "ping"} {
		assert.Contains(t, out, name)
	}
}

func TestWarmupValidatesBeforeConnecting(t *testing.T) {
	_, err := execute(t, failingLoader, "warmup", "--month", "2024-13")
	assert.ErrorIs(t, err, collections.ErrInvalidMonth)

	_, err = execute(t, failingLoader, "warmup", "--division", "XYZ")
	assert.ErrorIs(t, err, collections.ErrInvalidDivision)

	_, err = execute(t, failingLoader, "warmup", "--division", "ppa")
	assert.ErrorIs(t, err, errNoConfig)
}

func TestSeedRejectsYearOutOfRange(t *testing.T) {
	_, err := execute(t, failingLoader, "seed", "--year", "1999")
	assert.ErrorContains(t, err, "out of range")
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.db")
	out, err := execute(t, failingLoader, "migrate", "--sqlite", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite migrations applied")
}

func TestPingMemoryBackends(t *testing.T) {
	load := func() (*app.Config, error) {
		return &app.Config{
			MetricsBackend: app.MetricsMemory,
			ActionsBackend: app.ActionsSQLite,
			SQLitePath:     filepath.Join(t.TempDir(), "actions.db"),
			SampleYear:     2024,
		}, nil
	}
	out, err := execute(t, load, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "dependency=sqlite")
}

func TestRejectsPositionalArgs(t *testing.T) {
	_, err := execute(t, failingLoader, "queue", "extra")
	assert.Error(t, err)
}
