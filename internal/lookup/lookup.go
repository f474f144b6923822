// Package lookup builds in-memory indices over one batch of beads issues.
package lookup

import (
	"strings"

	"github.com/hulysync/beads-bridge/internal/identity"
	"github.com/hulysync/beads-bridge/internal/types"
)

// Indices are the lookup maps built from a single batch of issues.
// They are a plain value; every build starts from empty maps.
type Indices struct {
	ByID      map[string]types.Issue
	ByHulyID  map[string]types.Issue // first occurrence wins
	ByTitle   map[string]types.Issue // normalized title, first occurrence wins
	ParentMap map[string]string      // child ID -> parent ID
}

// MatchKind says which index resolved a Huly issue.
type MatchKind string

const (
	MatchNone       MatchKind = ""
	MatchIdentifier MatchKind = "identifier"
	MatchTitle      MatchKind = "title"
)

// putFirst stores v under k unless k is already present.
func putFirst[V any](m map[string]V, k string, v V) bool {
	if _, exists := m[k]; exists {
		return false
	}
	m[k] = v
	return true
}

// BuildIssueLookups indexes issues in a single pass in encounter order.
// Callers that want oldest-first tie breaking must pass issues sorted by
// creation time.
//
// If an issue carries several parent-child dependencies, the last one wins.
func BuildIssueLookups(issues []types.Issue) Indices {
	idx := Indices{
		ByID:      make(map[string]types.Issue, len(issues)),
		ByHulyID:  make(map[string]types.Issue),
		ByTitle:   make(map[string]types.Issue),
		ParentMap: make(map[string]string),
	}

	for _, issue := range issues {
		idx.ByID[issue.ID] = issue

		if hulyID := identity.FindHulyIdentifier(issue); hulyID != "" {
			putFirst(idx.ByHulyID, hulyID, issue)
		}

		if title := identity.NormalizeTitleForComparison(issue.Title); title != "" {
			putFirst(idx.ByTitle, title, issue)
		}

		for _, dep := range issue.Dependencies {
			if dep.Type == types.DepParentChild {
				idx.ParentMap[issue.ID] = dep.DependsOnID
			}
		}
	}

	return idx
}

// GetParentIDFromLookup returns the parent recorded for id.
// ok is false when there is none, including for a nil map.
func GetParentIDFromLookup(parentMap map[string]string, id string) (parentID string, ok bool) {
	parentID, ok = parentMap[id]
	return parentID, ok
}

// Resolve finds the beads issue corresponding to a Huly issue, trying the
// embedded identifier first and the normalized title second.
func (idx Indices) Resolve(h types.HulyIssue) (types.Issue, MatchKind, bool) {
	if h.Identifier != "" {
		if issue, ok := idx.ByHulyID[normalizeIdentifier(h.Identifier)]; ok {
			return issue, MatchIdentifier, true
		}
	}
	if title := identity.NormalizeTitleForComparison(h.Title); title != "" {
		if issue, ok := idx.ByTitle[title]; ok {
			return issue, MatchTitle, true
		}
	}
	return types.Issue{}, MatchNone, false
}

func normalizeIdentifier(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
