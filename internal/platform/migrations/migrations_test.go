package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpSQLiteCreatesActionsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.db")
	require.NoError(t, UpSQLite(path))
	// Applying twice is a no-op.
	require.NoError(t, UpSQLite(path))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'actions_data'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "actions_data", name)
}
