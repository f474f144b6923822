package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hulysync/beads-bridge/internal/types"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nested", "hbsync.db")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// runStoreContract exercises the Store contract against any implementation.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	rec, err := s.GetIssue(ctx, "PROJ-1")
	if err != nil {
		t.Fatalf("GetIssue() on empty store failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("GetIssue() = %+v, want nil", rec)
	}

	all, err := s.GetAllIssues(ctx)
	if err != nil {
		t.Fatalf("GetAllIssues() failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("GetAllIssues() = %d records, want 0", len(all))
	}

	updated := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	child := types.DbRecord{
		Identifier:    "PROJ-2",
		BeadsIssueID:  "bd-2",
		ParentHulyID:  "PROJ-1",
		ParentBeadsID: "bd-1",
		Title:         "Child",
		UpdatedAt:     updated,
	}
	parent := types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-1", UpdatedAt: updated}

	if err := s.UpsertIssue(ctx, child); err != nil {
		t.Fatalf("UpsertIssue(child) failed: %v", err)
	}
	if err := s.UpsertIssue(ctx, parent); err != nil {
		t.Fatalf("UpsertIssue(parent) failed: %v", err)
	}

	got, err := s.GetIssue(ctx, "PROJ-2")
	if err != nil {
		t.Fatalf("GetIssue() failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetIssue() returned nil for stored record")
	}
	if !got.UpdatedAt.Equal(child.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, child.UpdatedAt)
	}
	gotCopy, wantCopy := *got, child
	gotCopy.UpdatedAt, wantCopy.UpdatedAt = time.Time{}, time.Time{}
	if gotCopy != wantCopy {
		t.Errorf("GetIssue() = %+v, want %+v", gotCopy, wantCopy)
	}

	// Update clears the parent fields.
	child.ParentHulyID = ""
	child.ParentBeadsID = ""
	if err := s.UpsertIssue(ctx, child); err != nil {
		t.Fatalf("UpsertIssue(update) failed: %v", err)
	}
	got, _ = s.GetIssue(ctx, "PROJ-2")
	if got.ParentHulyID != "" || got.ParentBeadsID != "" {
		t.Errorf("parent fields not cleared: %+v", *got)
	}

	all, err = s.GetAllIssues(ctx)
	if err != nil {
		t.Fatalf("GetAllIssues() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAllIssues() = %d records, want 2", len(all))
	}
	if all[0].Identifier != "PROJ-1" || all[1].Identifier != "PROJ-2" {
		t.Errorf("records not ordered by identifier: %s, %s", all[0].Identifier, all[1].Identifier)
	}

	if err := s.UpsertIssue(ctx, types.DbRecord{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("UpsertIssue(empty) err = %v, want ErrInvalidRecord", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, openTestDB(t))
}

func TestNewMemory_Seeded(t *testing.T) {
	m := NewMemory(types.DbRecord{Identifier: "A-1"}, types.DbRecord{Identifier: "A-2"})
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestOpen_CreatesSchemaIdempotently(t *testing.T) {
	path := testDBPath(t)

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := db.UpsertIssue(context.Background(), types.DbRecord{Identifier: "X-1"}); err != nil {
		t.Fatalf("UpsertIssue() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestUpsertIssue_DefaultsUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertIssue(ctx, types.DbRecord{Identifier: "X-1"}); err != nil {
		t.Fatalf("UpsertIssue() failed: %v", err)
	}
	rec, err := db.GetIssue(ctx, "X-1")
	if err != nil {
		t.Fatalf("GetIssue() failed: %v", err)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set on write")
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") should fail")
	}
}

func TestClose_Twice(t *testing.T) {
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
