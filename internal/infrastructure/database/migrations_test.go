package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20250101_000000_create_devices.up.sql":   {Data: []byte(`CREATE TABLE devices (id TEXT PRIMARY KEY);`)},
		"20250101_000000_create_devices.down.sql": {Data: []byte(`DROP TABLE devices;`)},
		"20250102_000000_add_location.up.sql":     {Data: []byte(`ALTER TABLE devices ADD COLUMN location TEXT;`)},
		"20250102_000000_add_location.down.sql":   {Data: []byte(`ALTER TABLE devices DROP COLUMN location;`)},
		"README.md":                               {Data: []byte("not a migration")},
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.Execute(ctx, `INSERT INTO devices (id, location) VALUES (@id, @loc)`,
		Params{"id": "1", "loc": "frontdoor"}); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	// Second run is a no-op.
	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "20250101_000000" {
		t.Errorf("applied = %+v, want only first migration", applied)
	}
	if len(pending) != 1 || pending[0].Name != "add_location" {
		t.Errorf("pending = %+v, want add_location", pending)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20250103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE (`)}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2", len(applied))
	}
}

func TestLoadMigrations_MissingUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20250101_000000_orphan.down.sql": {Data: []byte(`DROP TABLE x;`)},
	}
	if _, err := LoadMigrations(fsys); err == nil {
		t.Error("LoadMigrations() expected error for down-only migration")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20250301_090000_initial_schema.up.sql", "20250301_090000", "initial_schema", true, true},
		{"20250301_090000_initial_schema.down.sql", "20250301_090000", "initial_schema", false, true},
		{"20250301_090000.up.sql", "20250301_090000", "20250301_090000", true, true},
		{"initial.up.sql", "", "", false, false},
		{"20250301_090000_x.sql", "", "", false, false},
		{"20250301_090000_x.up.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.file)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
