// Package reconcile links Huly issues to their beads counterparts and keeps
// the local mapping store current.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hulysync/beads-bridge/internal/logging"
	"github.com/hulysync/beads-bridge/internal/lookup"
	"github.com/hulysync/beads-bridge/internal/types"
)

// Store is the mapping store contract used for linking.
type Store interface {
	GetIssue(ctx context.Context, identifier string) (*types.DbRecord, error)
	GetAllIssues(ctx context.Context) ([]types.DbRecord, error)
	UpsertIssue(ctx context.Context, rec types.DbRecord) error
}

// LinkStats summarizes a LinkMappings run.
type LinkStats struct {
	Linked    int
	ByTitle   int // subset of Linked matched on normalized title
	Unmatched int
	Errors    []error
}

// LinkOptions tune LinkMappings.
type LinkOptions struct {
	DryRun bool
	Logger *slog.Logger
	Now    func() time.Time
}

// LinkMappings writes one mapping row per Huly issue.
//
// Each issue is resolved against idx (embedded identifier, then title).
// The row records the Huly parent and, when the beads side is known, the
// beads parent from idx.ParentMap. Issues that cannot be resolved still get
// a row so that parent references to them are not reported as orphans; an
// earlier beads mapping on that row is kept.
//
// A beads issue is claimed by the first Huly issue that resolves to it.
// Rows already in the store hold their claims from the start, so a beads
// issue is never mapped by two rows. A kept mapping that another row
// already claims is dropped.
func LinkMappings(ctx context.Context, db Store, hulyIssues []types.HulyIssue, idx lookup.Indices, opts LinkOptions) LinkStats {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	stats := LinkStats{Errors: []error{}}
	claimed, err := existingClaims(ctx, db)
	if err != nil {
		stats.Errors = append(stats.Errors, err)
		return stats
	}

	for _, h := range hulyIssues {
		existing, err := db.GetIssue(ctx, h.Identifier)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("lookup %s: %w", h.Identifier, err))
			continue
		}

		rec := types.DbRecord{Identifier: h.Identifier}
		if existing != nil {
			rec = *existing
		}
		rec.Title = h.Title
		rec.ParentHulyID = h.Parent

		issue, kind, ok := idx.Resolve(h)
		if ok {
			if owner, taken := claimed[issue.ID]; taken && owner != h.Identifier {
				logger.Warn("beads issue already linked, ignoring match",
					"huly", h.Identifier, "beads", issue.ID, "linked_to", owner)
				ok = false
			} else {
				if old := rec.BeadsIssueID; old != "" && old != issue.ID && claimed[old] == h.Identifier {
					delete(claimed, old)
				}
				claimed[issue.ID] = h.Identifier
				rec.BeadsIssueID = issue.ID
			}
		}
		if !ok && rec.BeadsIssueID != "" {
			if owner, taken := claimed[rec.BeadsIssueID]; taken && owner != h.Identifier {
				logger.Warn("dropping mapping to a beads issue linked elsewhere",
					"huly", h.Identifier, "beads", rec.BeadsIssueID, "linked_to", owner)
				rec.BeadsIssueID = ""
				rec.ParentBeadsID = ""
			} else {
				claimed[rec.BeadsIssueID] = h.Identifier
			}
		}

		if rec.BeadsIssueID == "" {
			stats.Unmatched++
			logger.Debug("no beads issue for huly issue", "huly", h.Identifier, "title", h.Title)
		} else {
			if _, known := idx.ByID[rec.BeadsIssueID]; known {
				parent, _ := lookup.GetParentIDFromLookup(idx.ParentMap, rec.BeadsIssueID)
				rec.ParentBeadsID = parent
			}
			if ok {
				stats.Linked++
				if kind == lookup.MatchTitle {
					stats.ByTitle++
				}
			} else {
				stats.Unmatched++
			}
		}

		if opts.DryRun {
			continue
		}
		rec.UpdatedAt = now()
		if err := db.UpsertIssue(ctx, rec); err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("upsert %s: %w", h.Identifier, err))
		}
	}

	logger.Info("linked huly issues",
		"linked", stats.Linked, "by_title", stats.ByTitle, "unmatched", stats.Unmatched, "errors", len(stats.Errors))
	return stats
}

// existingClaims maps every beads ID already in the store to the first
// identifier holding it.
func existingClaims(ctx context.Context, db Store) (map[string]string, error) {
	records, err := db.GetAllIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing mappings: %w", err)
	}
	claimed := make(map[string]string, len(records))
	for _, r := range records {
		if r.BeadsIssueID == "" {
			continue
		}
		if _, ok := claimed[r.BeadsIssueID]; !ok {
			claimed[r.BeadsIssueID] = r.Identifier
		}
	}
	return claimed, nil
}
