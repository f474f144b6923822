package batchsync

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hulysync/beads-bridge/internal/consistency"
	"github.com/hulysync/beads-bridge/internal/store"
	"github.com/hulysync/beads-bridge/internal/types"
)

type call struct {
	Op      string
	Project string
	Child   string
	Parent  string
}

// recordingClient records every mutation and fails for children in failOn.
type recordingClient struct {
	calls  []call
	failOn map[string]bool
}

func (c *recordingClient) AddDependency(ctx context.Context, projectPath, childID, parentID string) error {
	c.calls = append(c.calls, call{"add", projectPath, childID, parentID})
	if c.failOn[childID] {
		return errors.New("bd: exit status 1")
	}
	return nil
}

func (c *recordingClient) RemoveDependency(ctx context.Context, projectPath, childID, parentID string) error {
	c.calls = append(c.calls, call{"remove", projectPath, childID, parentID})
	if c.failOn[childID] {
		return errors.New("bd: exit status 1")
	}
	return nil
}

// failingStore wraps a Memory store and fails writes.
type failingStore struct {
	*store.Memory
}

func (failingStore) UpsertIssue(ctx context.Context, rec types.DbRecord) error {
	return errors.New("database is locked")
}

func rel(child, parent string) types.Relationship {
	return types.Relationship{ChildID: child, ParentID: parent, Source: types.SourceLookup, Success: true}
}

func TestBatchCreate_Empty(t *testing.T) {
	client := &recordingClient{}
	e := New(client, store.NewMemory(), Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj", nil, Options{})
	if got.Synced != 0 || got.Skipped != 0 || len(got.Errors) != 0 {
		t.Errorf("got %+v, want zero result", got)
	}
	if got.Errors == nil {
		t.Error("Errors should be an empty slice, not nil")
	}
	if len(client.calls) != 0 {
		t.Errorf("expected no bd calls, got %v", client.calls)
	}
}

func TestBatchRemove_Empty(t *testing.T) {
	e := New(&recordingClient{}, nil, Options{})
	got := e.BatchRemoveDependencies(context.Background(), "/proj", []types.Relationship{}, Options{})
	if got.Synced != 0 || got.Skipped != 0 || len(got.Errors) != 0 {
		t.Errorf("got %+v, want zero result", got)
	}
}

func TestBatchCreate_FailureIsSkippedNotError(t *testing.T) {
	client := &recordingClient{failOn: map[string]bool{"bd-2": true}}
	e := New(client, store.NewMemory(), Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj",
		[]types.Relationship{rel("bd-1", "bd-p"), rel("bd-2", "bd-p"), rel("bd-3", "bd-p")}, Options{})

	if got.Synced != 2 {
		t.Errorf("Synced = %d, want 2", got.Synced)
	}
	if got.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", got.Skipped)
	}
	if len(got.Errors) != 0 {
		t.Errorf("Errors = %v, want none", got.Errors)
	}
}

func TestBatchCreate_PreservesOrder(t *testing.T) {
	client := &recordingClient{failOn: map[string]bool{"bd-1": true}}
	e := New(client, nil, Options{})

	e.BatchCreateDependencies(context.Background(), "/proj",
		[]types.Relationship{rel("bd-3", "bd-p"), rel("bd-1", "bd-p"), rel("bd-2", "bd-q")}, Options{})

	want := []call{
		{"add", "/proj", "bd-3", "bd-p"},
		{"add", "/proj", "bd-1", "bd-p"},
		{"add", "/proj", "bd-2", "bd-q"},
	}
	if !reflect.DeepEqual(client.calls, want) {
		t.Errorf("calls = %v, want %v", client.calls, want)
	}
}

func TestBatchCreate_InvalidRelationships(t *testing.T) {
	client := &recordingClient{}
	e := New(client, nil, Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj",
		[]types.Relationship{rel("", "bd-p"), rel("bd-1", "bd-1"), rel("bd-2", "bd-p")}, Options{})

	if got.Synced != 1 || got.Skipped != 0 {
		t.Errorf("got synced=%d skipped=%d, want 1/0", got.Synced, got.Skipped)
	}
	if len(got.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2", got.Errors)
	}
	for _, err := range got.Errors {
		if !errors.Is(err, ErrInvalidRelationship) {
			t.Errorf("error %v is not ErrInvalidRelationship", err)
		}
	}
	if len(client.calls) != 1 {
		t.Errorf("invalid relationships must not reach bd, calls = %v", client.calls)
	}
}

func TestBatchCreate_RecordsLink(t *testing.T) {
	db := store.NewMemory(
		types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-p", Title: "Parent"},
		types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-c", Title: "Child"},
	)
	e := New(&recordingClient{}, db, Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj", []types.Relationship{rel("bd-c", "bd-p")}, Options{})
	if got.Synced != 1 {
		t.Fatalf("Synced = %d, want 1", got.Synced)
	}

	rec, err := db.GetIssue(context.Background(), "PROJ-2")
	if err != nil || rec == nil {
		t.Fatalf("GetIssue() = %v, %v", rec, err)
	}
	if rec.ParentBeadsID != "bd-p" || rec.ParentHulyID != "PROJ-1" {
		t.Errorf("record = %+v, want both parent fields set", *rec)
	}
	if rec.Title != "Child" || rec.BeadsIssueID != "bd-c" {
		t.Errorf("other fields not preserved: %+v", *rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestBatchCreate_StoreFailureIsNotError(t *testing.T) {
	db := failingStore{store.NewMemory(types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-c"})}
	e := New(&recordingClient{}, db, Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj", []types.Relationship{rel("bd-c", "bd-p")}, Options{})
	if got.Synced != 1 || len(got.Errors) != 0 {
		t.Errorf("got %+v, want synced=1 and no errors", got)
	}
}

func TestBatchCreate_DryRun(t *testing.T) {
	client := &recordingClient{}
	db := store.NewMemory(types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-c"})
	e := New(client, db, Options{})

	got := e.BatchCreateDependencies(context.Background(), "/proj",
		[]types.Relationship{rel("bd-c", "bd-p"), rel("bd-x", "bd-x")}, Options{DryRun: true})

	if got.Synced != 1 || len(got.Errors) != 1 {
		t.Errorf("got %+v, want synced=1 errors=1", got)
	}
	if len(client.calls) != 0 {
		t.Errorf("dry run called bd: %v", client.calls)
	}
	rec, _ := db.GetIssue(context.Background(), "PROJ-2")
	if rec.ParentBeadsID != "" {
		t.Errorf("dry run wrote the store: %+v", *rec)
	}
}

func TestBatchRemove(t *testing.T) {
	client := &recordingClient{failOn: map[string]bool{"bd-2": true}}
	db := store.NewMemory(types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-1", ParentBeadsID: "bd-p"})
	e := New(client, db, Options{})

	got := e.BatchRemoveDependencies(context.Background(), "/proj",
		[]types.Relationship{rel("bd-1", "bd-p"), rel("bd-2", "bd-p"), rel("bd-3", "")}, Options{})

	if got.Synced != 1 || got.Skipped != 1 || len(got.Errors) != 1 {
		t.Errorf("got synced=%d skipped=%d errors=%v, want 1/1/1", got.Synced, got.Skipped, got.Errors)
	}
	want := []call{
		{"remove", "/proj", "bd-1", "bd-p"},
		{"remove", "/proj", "bd-2", "bd-p"},
	}
	if !reflect.DeepEqual(client.calls, want) {
		t.Errorf("calls = %v, want %v", client.calls, want)
	}
	rec, _ := db.GetIssue(context.Background(), "PROJ-1")
	if rec.ParentBeadsID != "bd-p" {
		t.Error("remove must not write the store")
	}
}

func TestBatchCreate_UnmappedParentClearsHulyParent(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory(
		types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-old"},
		types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-c", ParentHulyID: "PROJ-1", ParentBeadsID: "bd-old"},
	)
	e := New(&recordingClient{}, db, Options{})

	got := e.BatchCreateDependencies(ctx, "/proj", []types.Relationship{rel("bd-c", "bd-unmapped")}, Options{})
	if got.Synced != 1 {
		t.Fatalf("Synced = %d, want 1", got.Synced)
	}

	rec, _ := db.GetIssue(ctx, "PROJ-2")
	if rec.ParentBeadsID != "bd-unmapped" || rec.ParentHulyID != "" {
		t.Errorf("record = %+v, want beads parent bd-unmapped and no Huly parent", *rec)
	}

	res, err := consistency.ValidateParentChildConsistency(ctx, db, "")
	if err != nil {
		t.Fatalf("ValidateParentChildConsistency() failed: %v", err)
	}
	want := []types.Mismatch{{Identifier: "PROJ-2", Type: types.MismatchBeadsOnlyParent}}
	if res.Valid || !reflect.DeepEqual(res.Mismatches, want) {
		t.Errorf("validation = %+v, want %v", res, want)
	}
}

func TestSyncParentChild(t *testing.T) {
	ctx := context.Background()
	child := types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-c", Title: "Child"}
	parent := types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-p"}

	t.Run("synced", func(t *testing.T) {
		db := store.NewMemory(child, parent)
		client := &recordingClient{}
		e := New(client, db, Options{})
		outcome, err := e.SyncParentChild(ctx, "/proj", child, parent, Options{})
		if err != nil || outcome != OutcomeSynced {
			t.Fatalf("got (%v, %v), want (synced, nil)", outcome, err)
		}
		if want := []call{{"add", "/proj", "bd-c", "bd-p"}}; !reflect.DeepEqual(client.calls, want) {
			t.Errorf("calls = %v, want %v", client.calls, want)
		}
		rec, _ := db.GetIssue(ctx, "PROJ-2")
		if rec.ParentBeadsID != "bd-p" || rec.ParentHulyID != "PROJ-1" {
			t.Errorf("record = %+v, want parent PROJ-1/bd-p", *rec)
		}
		if rec.Title != "Child" || rec.UpdatedAt.IsZero() {
			t.Errorf("record = %+v, want title kept and UpdatedAt set", *rec)
		}
	})

	t.Run("remote failure skipped", func(t *testing.T) {
		db := store.NewMemory(child)
		e := New(&recordingClient{failOn: map[string]bool{"bd-c": true}}, db, Options{})
		outcome, err := e.SyncParentChild(ctx, "/proj", child, parent, Options{})
		if err != nil || outcome != OutcomeSkipped {
			t.Errorf("got (%v, %v), want (skipped, nil)", outcome, err)
		}
		if rec, _ := db.GetIssue(ctx, "PROJ-2"); rec.ParentBeadsID != "" {
			t.Errorf("skipped link was recorded: %+v", *rec)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		e := New(&recordingClient{}, nil, Options{})
		if _, err := e.SyncParentChild(ctx, "/proj", child, types.DbRecord{Identifier: "PROJ-1"}, Options{}); !errors.Is(err, ErrInvalidRelationship) {
			t.Errorf("err = %v, want ErrInvalidRelationship", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		db := failingStore{store.NewMemory(child)}
		e := New(&recordingClient{}, db, Options{})
		outcome, err := e.SyncParentChild(ctx, "/proj", child, parent, Options{})
		if err == nil {
			t.Error("expected store error")
		}
		if outcome != OutcomeSynced {
			t.Errorf("outcome = %v, want synced", outcome)
		}
	})
}

func TestSyncAllParentChildFromHuly(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory(
		types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-1"},
		types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-2"},
		types.DbRecord{Identifier: "PROJ-3", BeadsIssueID: "bd-3"},
		types.DbRecord{Identifier: "PROJ-4"},
	)
	client := &recordingClient{failOn: map[string]bool{"bd-3": true}}
	e := New(client, db, Options{})

	got := e.SyncAllParentChildFromHuly(ctx, "/proj", []types.HulyIssue{
		{Identifier: "PROJ-1"},                    // no parent: ignored
		{Identifier: "PROJ-2", Parent: "PROJ-1"},  // synced
		{Identifier: "PROJ-3", Parent: "PROJ-1"},  // bd fails: skipped
		{Identifier: "PROJ-4", Parent: "PROJ-1"},  // child unmapped: skipped
		{Identifier: "PROJ-9", Parent: "PROJ-1"},  // child unknown: skipped
		{Identifier: "PROJ-2", Parent: "PROJ-99"}, // parent unknown: skipped
	}, Options{})

	if got.Synced != 1 || got.Skipped != 4 || len(got.Errors) != 0 {
		t.Errorf("got synced=%d skipped=%d errors=%v, want 1/4/0", got.Synced, got.Skipped, got.Errors)
	}

	want := []call{
		{"add", "/proj", "bd-2", "bd-1"},
		{"add", "/proj", "bd-3", "bd-1"},
	}
	if !reflect.DeepEqual(client.calls, want) {
		t.Errorf("calls = %v, want %v", client.calls, want)
	}

	rec, _ := db.GetIssue(ctx, "PROJ-2")
	if rec.ParentHulyID != "PROJ-1" || rec.ParentBeadsID != "bd-1" {
		t.Errorf("PROJ-2 = %+v, want parent PROJ-1/bd-1", *rec)
	}
	rec, _ = db.GetIssue(ctx, "PROJ-3")
	if rec.ParentHulyID != "" || rec.ParentBeadsID != "" {
		t.Errorf("skipped record was modified: %+v", *rec)
	}
}

func TestSyncAllParentChildFromHuly_StoreWriteError(t *testing.T) {
	db := failingStore{store.NewMemory(
		types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-1"},
		types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-2"},
	)}
	e := New(&recordingClient{}, db, Options{})

	got := e.SyncAllParentChildFromHuly(context.Background(), "/proj",
		[]types.HulyIssue{{Identifier: "PROJ-2", Parent: "PROJ-1"}}, Options{})
	if got.Synced != 0 || len(got.Errors) != 1 {
		t.Errorf("got %+v, want one error", got)
	}
}

func TestSyncAllParentChildFromHuly_DryRun(t *testing.T) {
	db := store.NewMemory(
		types.DbRecord{Identifier: "PROJ-1", BeadsIssueID: "bd-1"},
		types.DbRecord{Identifier: "PROJ-2", BeadsIssueID: "bd-2"},
	)
	client := &recordingClient{}
	e := New(client, db, Options{DryRun: true})

	got := e.SyncAllParentChildFromHuly(context.Background(), "/proj",
		[]types.HulyIssue{{Identifier: "PROJ-2", Parent: "PROJ-1"}}, Options{})
	if got.Synced != 1 {
		t.Errorf("Synced = %d, want 1", got.Synced)
	}
	if len(client.calls) != 0 {
		t.Errorf("dry run called bd: %v", client.calls)
	}
	rec, _ := db.GetIssue(context.Background(), "PROJ-2")
	if rec.ParentHulyID != "" {
		t.Error("dry run wrote the store")
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeSynced.String() != "synced" || OutcomeSkipped.String() != "skipped" {
		t.Errorf("unexpected strings: %s %s", OutcomeSynced, OutcomeSkipped)
	}
}
