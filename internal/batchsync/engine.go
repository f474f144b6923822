package batchsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hulysync/beads-bridge/internal/beadscli"
	"github.com/hulysync/beads-bridge/internal/logging"
	"github.com/hulysync/beads-bridge/internal/types"
)

// ErrInvalidRelationship is reported in BatchResult.Errors for relationships
// the engine refuses to send: empty IDs or a child that is its own parent.
var ErrInvalidRelationship = errors.New("invalid relationship")

// Options control a batch run.
type Options struct {
	// DryRun counts every valid relationship as synced without calling bd
	// or writing the store.
	DryRun bool

	// Logger overrides the engine logger for one call.
	Logger *slog.Logger
}

// Engine applies relationships one at a time, in input order.
//
// A failed bd call never aborts a batch: the item is logged and counted as
// skipped. Only problems the engine detects itself (invalid input, store
// failures where the contract requires it) end up in BatchResult.Errors.
type Engine struct {
	client DependencyMutator
	store  Store
	opts   Options
	now    func() time.Time
}

// New creates an Engine. store may be nil, in which case no links are
// recorded locally. opts are the defaults for every call; per-call options
// can only turn DryRun on.
//
// Example:
//
//	client := beadscli.New(beadscli.NewExecRunner(30*time.Second), "bd")
//	db, err := store.Open(".beads/hbsync.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	engine := batchsync.New(client, db, batchsync.Options{Logger: logger})
func New(client DependencyMutator, store Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Engine{
		client: client,
		store:  store,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) merge(opts Options) Options {
	merged := e.opts
	merged.DryRun = merged.DryRun || opts.DryRun
	if opts.Logger != nil {
		merged.Logger = opts.Logger
	}
	return merged
}

// ValidateRelationship checks a relationship before anything is sent to bd.
func ValidateRelationship(childID, parentID string) error {
	switch {
	case childID == "" || parentID == "":
		return fmt.Errorf("%w: child=%q parent=%q", ErrInvalidRelationship, childID, parentID)
	case childID == parentID:
		return fmt.Errorf("%w: %s cannot be its own parent", ErrInvalidRelationship, childID)
	}
	return nil
}

// BatchCreateDependencies adds each relationship to beads and records the
// link on the child's mapping row.
//
// An empty input yields a zero result. A store write failure after a
// successful add is logged only; the link already exists in beads.
func (e *Engine) BatchCreateDependencies(ctx context.Context, projectPath string, rels []types.Relationship, opts Options) types.BatchResult {
	opts = e.merge(opts)
	result := types.BatchResult{Errors: []error{}}

	var records *recordIndex
	for _, rel := range rels {
		outcome, err := e.add(ctx, projectPath, rel.ChildID, rel.ParentID, opts)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if outcome == OutcomeSkipped {
			result.Skipped++
			continue
		}
		result.Synced++

		if opts.DryRun || e.store == nil {
			continue
		}
		if records == nil {
			records, err = loadRecordIndex(ctx, e.store)
			if err != nil {
				opts.Logger.Warn("failed to load mapping records, links will not be recorded", "error", err)
				records = &recordIndex{}
			}
		}
		if err := records.recordLink(ctx, e.store, rel.ChildID, rel.ParentID, e.now()); err != nil {
			opts.Logger.Warn("dependency added but mapping not updated",
				"child", rel.ChildID, "parent", rel.ParentID, "error", err)
		}
	}

	opts.Logger.Info("batch create complete",
		"synced", result.Synced, "skipped", result.Skipped, "errors", len(result.Errors), "dry_run", opts.DryRun)
	return result
}

// BatchRemoveDependencies removes each relationship from beads. The local
// store is not touched.
func (e *Engine) BatchRemoveDependencies(ctx context.Context, projectPath string, rels []types.Relationship, opts Options) types.BatchResult {
	opts = e.merge(opts)
	result := types.BatchResult{Errors: []error{}}

	for _, rel := range rels {
		if err := ValidateRelationship(rel.ChildID, rel.ParentID); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}

		if opts.DryRun {
			opts.Logger.Info("dry run: would remove dependency", "child", rel.ChildID, "parent", rel.ParentID)
			result.Synced++
			continue
		}

		if err := e.client.RemoveDependency(ctx, projectPath, rel.ChildID, rel.ParentID); err != nil {
			opts.Logger.Warn("failed to remove dependency",
				"child", rel.ChildID, "parent", rel.ParentID, "error", err)
			result.Skipped++
			continue
		}

		opts.Logger.Debug("removed dependency", "child", rel.ChildID, "parent", rel.ParentID)
		result.Synced++
	}

	opts.Logger.Info("batch remove complete",
		"synced", result.Synced, "skipped", result.Skipped, "errors", len(result.Errors), "dry_run", opts.DryRun)
	return result
}

// SyncParentChild makes parent the beads parent of child and records both
// parent fields on child's mapping row. Both rows must carry a
// BeadsIssueID; child must have an Identifier for the link to be recorded.
//
// A failed bd call yields OutcomeSkipped with a nil error. Invalid IDs and
// store failures are returned as errors.
func (e *Engine) SyncParentChild(ctx context.Context, projectPath string, child, parent types.DbRecord, opts Options) (Outcome, error) {
	opts = e.merge(opts)

	outcome, err := e.add(ctx, projectPath, child.BeadsIssueID, parent.BeadsIssueID, opts)
	if err != nil || outcome != OutcomeSynced || opts.DryRun || e.store == nil || child.Identifier == "" {
		return outcome, err
	}

	if err := e.store.UpsertIssue(ctx, linkRecord(child, parent, e.now())); err != nil {
		return OutcomeSynced, fmt.Errorf("record link %s: %w", child.Identifier, err)
	}
	return OutcomeSynced, nil
}

// SyncAllParentChildFromHuly propagates the Huly hierarchy into beads.
//
// For every Huly issue with a parent, both identifiers are resolved to
// beads IDs through the mapping store and handed to SyncParentChild.
// Unmapped issues are skipped. Issues without a parent contribute nothing.
func (e *Engine) SyncAllParentChildFromHuly(ctx context.Context, projectPath string, hulyIssues []types.HulyIssue, opts Options) types.BatchResult {
	opts = e.merge(opts)
	result := types.BatchResult{Errors: []error{}}

	if e.store == nil {
		if len(hulyIssues) > 0 {
			result.Errors = append(result.Errors, errors.New("no mapping store configured"))
		}
		return result
	}

	for _, issue := range hulyIssues {
		if issue.Parent == "" {
			continue
		}

		child, err := e.store.GetIssue(ctx, issue.Identifier)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("lookup %s: %w", issue.Identifier, err))
			continue
		}
		parent, err := e.store.GetIssue(ctx, issue.Parent)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("lookup %s: %w", issue.Parent, err))
			continue
		}
		if child == nil || child.BeadsIssueID == "" || parent == nil || parent.BeadsIssueID == "" {
			opts.Logger.Debug("no beads mapping, skipping", "child", issue.Identifier, "parent", issue.Parent)
			result.Skipped++
			continue
		}

		outcome, err := e.SyncParentChild(ctx, projectPath, *child, *parent, opts)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, err)
		case outcome == OutcomeSkipped:
			result.Skipped++
		default:
			result.Synced++
		}
	}

	opts.Logger.Info("huly hierarchy sync complete",
		"synced", result.Synced, "skipped", result.Skipped, "errors", len(result.Errors), "dry_run", opts.DryRun)
	return result
}

// add validates and sends one dependency to bd.
func (e *Engine) add(ctx context.Context, projectPath, childID, parentID string, opts Options) (Outcome, error) {
	if err := ValidateRelationship(childID, parentID); err != nil {
		return OutcomeSkipped, err
	}

	if opts.DryRun {
		opts.Logger.Info("dry run: would add dependency", "child", childID, "parent", parentID)
		return OutcomeSynced, nil
	}

	if err := e.client.AddDependency(ctx, projectPath, childID, parentID); err != nil {
		opts.Logger.Warn("failed to add dependency",
			"child", childID, "parent", parentID,
			"exit_code", beadscli.ExitCode(err), "retryable", beadscli.IsRetryable(err),
			"error", err)
		return OutcomeSkipped, nil
	}

	opts.Logger.Debug("added dependency", "child", childID, "parent", parentID)
	return OutcomeSynced, nil
}
