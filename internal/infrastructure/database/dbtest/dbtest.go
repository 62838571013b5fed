// Package dbtest opens throwaway SQLite databases with the Safehouse schema
// for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database"
	"github.com/SDE-CIS/SafehouseSolutionsApi/migrations"
)

// New returns a migrated database in t's temp directory, closed on cleanup.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "safehouse.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}
