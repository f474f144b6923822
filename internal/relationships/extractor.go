// Package relationships derives the parent-child graph of a beads project.
package relationships

import (
	"context"
	"log/slog"

	"github.com/hulysync/beads-bridge/internal/beadscli"
	"github.com/hulysync/beads-bridge/internal/logging"
	"github.com/hulysync/beads-bridge/internal/lookup"
	"github.com/hulysync/beads-bridge/internal/types"
)

// DependencyTreeQuerier is the part of the bd client the extractor needs.
type DependencyTreeQuerier interface {
	DepTree(ctx context.Context, projectPath, issueID string) ([]beadscli.TreeNode, error)
}

// Extractor resolves each issue's parent by querying bd.
type Extractor struct {
	client DependencyTreeQuerier
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(client DependencyTreeQuerier, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Extractor{client: client, logger: logger}
}

// GetAllParentChildRelationships queries the dependency tree of every issue
// that has at least one dependency and returns one relationship per issue
// with a parent, in input order.
//
// A failed or unparsable query drops that issue only; it is logged and
// never returned as an error.
func (e *Extractor) GetAllParentChildRelationships(ctx context.Context, projectPath string, issues []types.Issue) []types.Relationship {
	var rels []types.Relationship

	for _, issue := range issues {
		if len(issue.Dependencies) == 0 {
			continue
		}

		nodes, err := e.client.DepTree(ctx, projectPath, issue.ID)
		if err != nil {
			e.logger.Warn("dependency tree query failed",
				"issue", issue.ID,
				"malformed", beadscli.IsMalformed(err),
				"error", err)
			continue
		}

		parent, ok := beadscli.FirstAtDepth(nodes, 1)
		if !ok || parent.ID == "" {
			continue
		}

		rels = append(rels, types.Relationship{
			ChildID:  issue.ID,
			ParentID: parent.ID,
			Source:   types.SourceBeadsDepTree,
			Success:  true,
		})
	}

	e.logger.Debug("extracted parent-child relationships", "issues", len(issues), "relationships", len(rels))
	return rels
}

// FromLookup returns the relationships recorded in the local ParentMap
// without any remote query, ordered like issues.
func FromLookup(idx lookup.Indices, issues []types.Issue) []types.Relationship {
	var rels []types.Relationship
	for _, issue := range issues {
		parentID, ok := lookup.GetParentIDFromLookup(idx.ParentMap, issue.ID)
		if !ok {
			continue
		}
		rels = append(rels, types.Relationship{
			ChildID:  issue.ID,
			ParentID: parentID,
			Source:   types.SourceLookup,
			Success:  true,
		})
	}
	return rels
}
