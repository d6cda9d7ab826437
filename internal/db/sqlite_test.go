package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return d
}

func TestNew_CreatesDirAndUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "journal.sqlite")

	d, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}

	var mode string
	if err := d.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestRunMigrations_JournalSchema(t *testing.T) {
	d := setupTestDB(t)

	rows, err := d.Conn().Query("SELECT name FROM pragma_table_info('actions')")
	if err != nil {
		t.Fatalf("table_info: %v", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols[name] = true
	}
	for _, want := range []string{"id", "batch_id", "kind", "credential_id", "ad_id", "detail", "outcome", "error", "duration_ms", "created_at"} {
		if !cols[want] {
			t.Errorf("actions.%s missing", want)
		}
	}

	for _, idx := range []string{"idx_actions_created_at", "idx_actions_credential", "idx_actions_batch"} {
		var name string
		err := d.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s missing: %v", idx, err)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	d := setupTestDB(t)

	if err := d.RunMigrations(context.Background()); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	known, err := embeddedMigrations()
	if err != nil {
		t.Fatalf("embeddedMigrations() error = %v", err)
	}
	var count int
	if err := d.Conn().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(known) {
		t.Errorf("schema_migrations rows = %d, want %d", count, len(known))
	}
}

func TestEmbeddedMigrations_Ordered(t *testing.T) {
	known, err := embeddedMigrations()
	if err != nil {
		t.Fatalf("embeddedMigrations() error = %v", err)
	}
	if len(known) == 0 || known[0].version != 1 {
		t.Fatalf("migrations = %+v, want version 1 first", known)
	}
	for i := 1; i < len(known); i++ {
		if known[i].version <= known[i-1].version {
			t.Errorf("migration %s out of order", known[i].name)
		}
	}
}
