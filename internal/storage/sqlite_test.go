package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestSQLite(t *testing.T, historyLimit int) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStorage(filepath.Join(dir, "db", "rolls.db"), dir, historyLimit, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage_AppendAndListRolls(t *testing.T) {
	s := setupTestSQLite(t, 3)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := s.AppendRoll(ctx, record("tavern", i)); err != nil {
			t.Fatalf("AppendRoll(%d) error = %v", i, err)
		}
	}
	if err := s.AppendRoll(ctx, record("dungeon", 9)); err != nil {
		t.Fatalf("AppendRoll error = %v", err)
	}

	got, err := s.ListRolls(ctx, "tavern", 10)
	if err != nil {
		t.Fatalf("ListRolls error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListRolls returned %d records, want 3", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if got[i] != record("tavern", want) {
			t.Errorf("ListRolls[%d] = %+v, want %+v", i, got[i], record("tavern", want))
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rolls WHERE channel_id = ?", "tavern").Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 3 {
		t.Errorf("table holds %d tavern rows, want 3", count)
	}

	got, err = s.ListRolls(ctx, "dungeon", 2)
	if err != nil {
		t.Fatalf("ListRolls error = %v", err)
	}
	if len(got) != 1 || got[0].Result != "19" {
		t.Errorf("ListRolls(dungeon) = %+v", got)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rolls.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path, dir, 10, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	if err := s.AppendRoll(ctx, record("tavern", 1)); err != nil {
		t.Fatalf("AppendRoll error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}

	s, err = NewSQLiteStorage(path, dir, 10, testLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := s.ListRolls(ctx, "tavern", 10)
	if err != nil {
		t.Fatalf("ListRolls error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ListRolls after reopen returned %d records, want 1", len(got))
	}
}
