package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// writeFiles creates empty files named names under a fresh temp dir.
func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func baseNames(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Base(f)
	}
	return out
}

// TestMigrationFiles_Sorted verifies files come back in apply order and
// non-.sql files are ignored.
func TestMigrationFiles_Sorted(t *testing.T) {
	dir := writeFiles(t,
		"2026-09-02-001-add-index.sql",
		"2026-09-01-002-create-users.sql",
		"2026-09-01-001-create-migrations.sql",
		"README.md",
	)
	files, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{
		"2026-09-01-001-create-migrations.sql",
		"2026-09-01-002-create-users.sql",
		"2026-09-02-001-add-index.sql",
	}
	if got := baseNames(files); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

// TestMigrationFiles_Invalid verifies the directory and naming checks.
func TestMigrationFiles_Invalid(t *testing.T) {
	notDir := filepath.Join(writeFiles(t, "schema.txt"), "schema.txt")

	cases := []struct {
		name string
		dir  string
	}{
		{"missing dir", filepath.Join(t.TempDir(), "nope")},
		{"file instead of dir", notDir},
		{"empty dir", t.TempDir()},
		{"bad name", writeFiles(t, "2026-09-01-001-ok.sql", "add_users.sql")},
		{"missing sequence", writeFiles(t, "2026-09-01-create-users.sql")},
		{"duplicate prefix", writeFiles(t, "2026-09-01-001-create-users.sql", "2026-09-01-001-create-logs.sql")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := migrationFiles(tc.dir); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

// TestPendingMigrations verifies recorded files are skipped by base name.
func TestPendingMigrations(t *testing.T) {
	files := []string{
		"db/2026-09-01-001-create-migrations.sql",
		"db/2026-09-01-002-create-users.sql",
		"db/2026-09-01-003-create-user-profiles.sql",
	}
	applied := map[string]bool{
		"2026-09-01-001-create-migrations.sql": true,
		"2026-09-01-002-create-users.sql":      true,
	}
	got := pendingMigrations(files, applied)
	if !reflect.DeepEqual(got, files[2:]) {
		t.Errorf("pending = %v, want %v", got, files[2:])
	}
	if got := pendingMigrations(files, map[string]bool{}); len(got) != 3 {
		t.Errorf("fresh database: %d pending, want 3", len(got))
	}
}

// TestDescriptionFromFilename verifies the prefix and suffix are stripped.
func TestDescriptionFromFilename(t *testing.T) {
	cases := map[string]string{
		"2026-09-01-004-create-daily-logs.sql": "create daily logs",
		"2026-09-01-001-create-migrations.sql": "create migrations",
	}
	for in, want := range cases {
		if got := descriptionFromFilename(in); got != want {
			t.Errorf("descriptionFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestIsUndefinedTable verifies only the missing-relation code is tolerated.
func TestIsUndefinedTable(t *testing.T) {
	if !isUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Error("42P01 should be treated as a missing table")
	}
	if isUndefinedTable(&pgconn.PgError{Code: "42501"}) {
		t.Error("permission denied should not be treated as a missing table")
	}
	if isUndefinedTable(errors.New("connection reset")) || isUndefinedTable(nil) {
		t.Error("non-Postgres errors should not be treated as a missing table")
	}
}
