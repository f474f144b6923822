// Package consistency audits recorded parent links in the local mapping store.
package consistency

import (
	"context"
	"fmt"
	"strings"

	"github.com/hulysync/beads-bridge/internal/types"
)

// RecordReader is the read side of the mapping store.
type RecordReader interface {
	GetAllIssues(ctx context.Context) ([]types.DbRecord, error)
}

// ValidateParentChildConsistency loads every record and reports
//   - mismatches: exactly one of ParentHulyID / ParentBeadsID is set
//   - orphans: ParentHulyID names an identifier that is not loaded
//
// The two checks are independent; a record can be both. If projectPrefix
// is non-empty only records with identifiers "<prefix>-..." are audited,
// but parents resolve against the full set. Nothing is modified.
func ValidateParentChildConsistency(ctx context.Context, db RecordReader, projectPrefix string) (types.ValidationResult, error) {
	records, err := db.GetAllIssues(ctx)
	if err != nil {
		return types.ValidationResult{}, fmt.Errorf("failed to load records: %w", err)
	}

	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.Identifier] = struct{}{}
	}

	result := types.ValidationResult{
		Mismatches: []types.Mismatch{},
		Orphans:    []types.Orphan{},
	}

	for _, r := range records {
		if !inProject(r.Identifier, projectPrefix) {
			continue
		}

		if m, ok := CheckMismatch(r); ok {
			result.Mismatches = append(result.Mismatches, m)
		}

		if r.ParentHulyID != "" {
			if _, ok := known[r.ParentHulyID]; !ok {
				result.Orphans = append(result.Orphans, types.Orphan{
					Identifier:   r.Identifier,
					ParentHulyID: r.ParentHulyID,
				})
			}
		}
	}

	result.Valid = len(result.Mismatches) == 0 && len(result.Orphans) == 0
	return result, nil
}

// CheckMismatch reports a one-sided parent link on a single record.
func CheckMismatch(r types.DbRecord) (types.Mismatch, bool) {
	hasHuly := r.ParentHulyID != ""
	hasBeads := r.ParentBeadsID != ""

	switch {
	case hasHuly && !hasBeads:
		return types.Mismatch{Identifier: r.Identifier, Type: types.MismatchHulyOnlyParent}, true
	case hasBeads && !hasHuly:
		return types.Mismatch{Identifier: r.Identifier, Type: types.MismatchBeadsOnlyParent}, true
	default:
		return types.Mismatch{}, false
	}
}

func inProject(identifier, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(identifier), strings.ToUpper(strings.TrimSuffix(prefix, "-"))+"-")
}
