package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	// Schema should be queryable.
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		t.Fatalf("querying courses: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty courses table, got %d rows", n)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tentor.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO courses (code, name) VALUES ('TDDD38', 'Advanced C++')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestLockinSlotUnique(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	_, err = d.Exec(`INSERT INTO lockin_session (slot, exam_id, started_at, duration_minutes, last_activity_at)
		VALUES (2, 'x', datetime('now'), 60, datetime('now'))`)
	if err == nil {
		t.Error("expected check constraint to reject slot != 1")
	}
}
