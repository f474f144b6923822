// Package types defines the records exchanged between the Huly and beads
// trackers during parent-child reconciliation.
package types

import (
	"fmt"
	"time"
)

// DependencyType names a relation kind between two beads issues.
// The set is open; only DepParentChild is interpreted by reconciliation.
type DependencyType string

const (
	DepBlocks         DependencyType = "blocks"
	DepRelated        DependencyType = "related"
	DepParentChild    DependencyType = "parent-child"
	DepDiscoveredFrom DependencyType = "discovered-from"
)

// Dependency is a directed relation from the owning issue to DependsOnID.
// For parent-child, the owning issue is the child and DependsOnID the parent.
type Dependency struct {
	Type        DependencyType `json:"type"`
	DependsOnID string         `json:"depends_on_id"`
}

// Comment is a single comment body on a beads issue.
type Comment struct {
	Text string `json:"text"`
}

// Issue is a beads issue as exported to issues.jsonl.
type Issue struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       string       `json:"status,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SetDefaults normalizes optional collections to empty slices.
func (i *Issue) SetDefaults() {
	if i.Comments == nil {
		i.Comments = []Comment{}
	}
	if i.Dependencies == nil {
		i.Dependencies = []Dependency{}
	}
}

// HulyIssue is the subset of a Huly issue needed for hierarchy propagation.
type HulyIssue struct {
	Identifier string    `json:"identifier"` // e.g. "PROJ-42"
	Title      string    `json:"title"`
	Status     string    `json:"status,omitempty"`
	Parent     string    `json:"parent,omitempty"` // parent identifier, empty for top-level issues
	ModifiedOn time.Time `json:"modified_on,omitempty"`
}

// DbRecord is one row of the local Huly<->beads mapping database.
// ParentHulyID and ParentBeadsID are expected to be both set or both empty.
type DbRecord struct {
	Identifier    string    `json:"identifier" yaml:"identifier"`
	BeadsIssueID  string    `json:"beads_issue_id,omitempty" yaml:"beads_issue_id,omitempty"`
	ParentHulyID  string    `json:"parent_huly_id,omitempty" yaml:"parent_huly_id,omitempty"`
	ParentBeadsID string    `json:"parent_beads_id,omitempty" yaml:"parent_beads_id,omitempty"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// RelationshipSource records how a relationship was discovered.
type RelationshipSource string

const (
	SourceBeadsDepTree RelationshipSource = "beads-dep-tree"
	SourceHulyParent   RelationshipSource = "huly-parent"
	SourceLookup       RelationshipSource = "lookup"
)

// Relationship is a single-parent edge from ChildID to ParentID.
type Relationship struct {
	ChildID  string             `json:"child_id"`
	ParentID string             `json:"parent_id"`
	Source   RelationshipSource `json:"source,omitempty"`
	Success  bool               `json:"success"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s -> %s", r.ChildID, r.ParentID)
}

// MismatchType classifies a one-sided parent link.
type MismatchType string

const (
	MismatchHulyOnlyParent  MismatchType = "huly_only_parent"
	MismatchBeadsOnlyParent MismatchType = "beads_only_parent"
)

// Mismatch is a record where the two stores disagree on whether a parent exists.
type Mismatch struct {
	Identifier string       `json:"identifier" yaml:"identifier"`
	Type       MismatchType `json:"type" yaml:"type"`
}

// Orphan is a record whose parent identifier does not resolve to any loaded record.
type Orphan struct {
	Identifier   string `json:"identifier" yaml:"identifier"`
	ParentHulyID string `json:"parent_huly_id" yaml:"parent_huly_id"`
}

// ValidationResult is the outcome of a parent-child consistency audit.
type ValidationResult struct {
	Valid      bool       `json:"valid" yaml:"valid"`
	Mismatches []Mismatch `json:"mismatches" yaml:"mismatches"`
	Orphans    []Orphan   `json:"orphans" yaml:"orphans"`
}

// BatchResult tallies a batch of relationship operations.
// Errors holds only failures detected by the engine itself; failed remote
// operations are counted in Skipped.
type BatchResult struct {
	Synced  int     `json:"synced"`
	Skipped int     `json:"skipped"`
	Errors  []error `json:"-"`
}
