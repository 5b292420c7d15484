package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"m/001_create_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"m/001_create_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"m/002_add_name.up.sql":         {Data: []byte("ALTER TABLE widgets ADD COLUMN name TEXT;")},
		"m/002_add_name.down.sql":       {Data: []byte("ALTER TABLE widgets DROP COLUMN name;")},
		"m/README.md":                   {Data: []byte("ignored")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFSProviderGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "m", "").GetMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, expected 2", len(migrations))
	}
	if migrations[0].Name != "create widgets" || migrations[0].Up == "" || migrations[0].Down == "" {
		t.Errorf("migration 1 = %+v", migrations[0])
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), "m", ""), nil)

	if err := m.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	v, err := m.GetCurrentVersion()
	if err != nil || v != 2 {
		t.Fatalf("version = %d, %v; expected 2", v, err)
	}
	if _, err := db.Exec("INSERT INTO widgets (id, name) VALUES (1, 'a')"); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	// Running again is a no-op.
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	if err := m.MigrateTo(1); err != nil {
		t.Fatalf("MigrateTo(1): %v", err)
	}
	v, _ = m.GetCurrentVersion()
	if v != 1 {
		t.Errorf("version after rollback = %d, expected 1", v)
	}
	if _, err := db.Exec("INSERT INTO widgets (id, name) VALUES (2, 'b')"); err == nil {
		t.Error("name column still present after rollback")
	}
}
