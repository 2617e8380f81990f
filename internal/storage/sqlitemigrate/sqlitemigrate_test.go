package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsOnce(t *testing.T) {
	migrationFS := fstest.MapFS{
		"0001_init.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE widgets (id TEXT PRIMARY KEY);
-- +migrate Down
DROP TABLE widgets;
`)},
		"0002_add.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
ALTER TABLE widgets ADD COLUMN name TEXT;
`)},
	}

	sqlDB := openTestDB(t)
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO widgets (id, name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	// A second run must skip already-applied files.
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("applied migrations = %d, want 2", count)
	}
}

func TestExtractUpMigration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a (id TEXT);", "CREATE TABLE a (id TEXT);"},
		{"up only", "-- +migrate Up\nCREATE TABLE b (id TEXT);", "CREATE TABLE b (id TEXT);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE c (id TEXT);\n-- +migrate Down\nDROP TABLE c;", "CREATE TABLE c (id TEXT);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(ExtractUpMigration(tt.content))
			if got != tt.want {
				t.Fatalf("ExtractUpMigration = %q, want %q", got, tt.want)
			}
		})
	}
}
