package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/xxxsen/reframe/internal/config"
	"github.com/xxxsen/reframe/internal/db"
)

const Driver = "sqlite"

// OpenTestDB opens a migrated sqlite database under t.TempDir.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: Driver,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn, Driver); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
