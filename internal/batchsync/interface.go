// Package batchsync applies parent-child relationships to beads and records
// the resulting links in the local mapping store.
package batchsync

import (
	"context"

	"github.com/hulysync/beads-bridge/internal/types"
)

// DependencyMutator creates and removes parent-child dependencies in beads.
//
// Each call succeeds or fails as a whole. The engine treats any error from
// these methods as a soft, per-item failure: the item is counted as skipped
// and the batch continues.
type DependencyMutator interface {
	// AddDependency records childID as a child of parentID.
	//
	// Example:
	//   err := client.AddDependency(ctx, "/path/to/project", "bd-child", "bd-parent")
	AddDependency(ctx context.Context, projectPath, childID, parentID string) error

	// RemoveDependency removes the parent-child link between childID and parentID.
	RemoveDependency(ctx context.Context, projectPath, childID, parentID string) error
}

// Store is the part of the local mapping store the engine reads and writes.
type Store interface {
	GetIssue(ctx context.Context, identifier string) (*types.DbRecord, error)
	GetAllIssues(ctx context.Context) ([]types.DbRecord, error)
	UpsertIssue(ctx context.Context, rec types.DbRecord) error
}

// Outcome is the result of syncing a single relationship.
type Outcome int

const (
	// OutcomeSkipped means the remote operation failed or was not attempted;
	// nothing changed and the caller may retry later.
	OutcomeSkipped Outcome = iota

	// OutcomeSynced means the link exists in beads (or would, in a dry run).
	OutcomeSynced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}
