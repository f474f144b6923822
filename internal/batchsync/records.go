package batchsync

import (
	"context"
	"fmt"
	"time"

	"github.com/hulysync/beads-bridge/internal/types"
)

// recordIndex maps beads IDs to mapping rows for one batch.
type recordIndex struct {
	byBeadsID map[string]types.DbRecord
}

func loadRecordIndex(ctx context.Context, s Store) (*recordIndex, error) {
	records, err := s.GetAllIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping records: %w", err)
	}
	idx := &recordIndex{byBeadsID: make(map[string]types.DbRecord, len(records))}
	for _, r := range records {
		if r.BeadsIssueID == "" {
			continue
		}
		if _, exists := idx.byBeadsID[r.BeadsIssueID]; !exists {
			idx.byBeadsID[r.BeadsIssueID] = r
		}
	}
	return idx, nil
}

// recordLink sets the parent fields on the row mapped to childBeadsID.
// Beads issues with no Huly row are not recorded.
func (idx *recordIndex) recordLink(ctx context.Context, s Store, childBeadsID, parentBeadsID string, now time.Time) error {
	rec, ok := idx.byBeadsID[childBeadsID]
	if !ok {
		return nil
	}

	parent, ok := idx.byBeadsID[parentBeadsID]
	if !ok {
		parent = types.DbRecord{BeadsIssueID: parentBeadsID}
	}
	rec = linkRecord(rec, parent, now)

	if err := s.UpsertIssue(ctx, rec); err != nil {
		return fmt.Errorf("failed to record link %s -> %s: %w", childBeadsID, parentBeadsID, err)
	}
	idx.byBeadsID[childBeadsID] = rec
	return nil
}

// linkRecord returns child with both parent fields taken from parent.
// A parent without a Huly row leaves ParentHulyID empty.
func linkRecord(child, parent types.DbRecord, now time.Time) types.DbRecord {
	child.ParentHulyID = parent.Identifier
	child.ParentBeadsID = parent.BeadsIssueID
	child.UpdatedAt = now
	return child
}
