package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func withMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

func TestMigrate(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260301_120000_ledger.up.sql":   {Data: []byte("CREATE TABLE ledger (topic TEXT PRIMARY KEY) STRICT;")},
		"20260301_120000_ledger.down.sql": {Data: []byte("DROP TABLE ledger;")},
		"20260302_090000_cycle.up.sql":    {Data: []byte("ALTER TABLE ledger ADD COLUMN cycle TEXT;")},
		"README.md":                       {Data: []byte("not a migration")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO ledger (topic, cycle) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "20260301_120000" || applied[1].Version != "20260302_090000" {
		t.Errorf("applied = %+v", applied)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateFailureRollsBackThatMigration(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260301_120000_good.up.sql": {Data: []byte("CREATE TABLE good (x INTEGER);")},
		"20260301_130000_bad.up.sql":  {Data: []byte("CREATE TABLE bad (x INTEGER); NOT SQL;")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() should fail on invalid SQL")
	}
	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "20260301_120000" {
		t.Errorf("applied = %+v, want only the good migration", applied)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	MigrationsFS = nil
	t.Cleanup(func() { MigrationsFS = origFS })

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no files error = %v", err)
	}
}

func TestLoadMigrationsRequiresUpFile(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{
		"20260301_120000_orphan.down.sql": {Data: []byte("DROP TABLE x;")},
	}, ".")
	if err == nil {
		t.Error("loadMigrations() should reject a down file without an up file")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_120000_published_entities.up.sql", "20260301_120000", "published_entities", true, true},
		{"20260301_120000_published_entities.down.sql", "20260301_120000", "published_entities", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "", true, true},
		{"20260301_120000_x.sql", "", "", false, false},
		{"20260301.up.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if version != tt.wantVersion || name != tt.wantName || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					tt.filename, version, name, isUp, ok, tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}
