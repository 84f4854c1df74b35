package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odyssey-erp/arcollect/internal/platform/migrations"

	_ "modernc.org/sqlite"
)

// Open creates the database directory, applies migrations and returns a
// pinged handle. A single connection avoids SQLITE_BUSY under concurrent writes.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("platform/sqlite: create directory: %w", err)
	}
	if err := migrations.UpSQLite(path); err != nil {
		return nil, fmt.Errorf("platform/sqlite: migrate: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("platform/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("platform/sqlite: ping: %w", err)
	}
	return db, nil
}
