package store

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	_, path := openTestStore(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"slots", "timers"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after repeated opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/test.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM timers").Scan(&count); err != nil {
		t.Fatalf("schema not applied to in-memory database: %v", err)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	s, path := openTestStore(t)
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error opening a database from a newer version")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s, _ := openTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSchema_IsRunningConstraint(t *testing.T) {
	s, _ := openTestStore(t)

	if _, err := s.db.Exec(`INSERT INTO slots (slot, saved_at, timer_count) VALUES ('x', '2026-01-01T00:00:00Z', 1)`); err != nil {
		t.Fatalf("insert slot: %v", err)
	}
	_, err := s.db.Exec(`
		INSERT INTO timers (slot, position, id, student_name, exam_name, duration_seconds, remaining_seconds, is_running)
		VALUES ('x', 0, 't1', 'Ana', 'Math', 60, 60, 2)
	`)
	if err == nil {
		t.Error("expected CHECK constraint failure for is_running = 2")
	}
}
