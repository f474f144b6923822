// Package huly loads Huly issues from an export file.
//
// Both a JSON array and one object per line are accepted:
//
//	[{"identifier":"PROJ-1","title":"Epic"},{"identifier":"PROJ-2","title":"Task","parent":"PROJ-1"}]
//
//	{"identifier":"PROJ-1","title":"Epic"}
//	{"identifier":"PROJ-2","title":"Task","parent":"PROJ-1"}
package huly

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hulysync/beads-bridge/internal/types"
)

// ErrMissingIdentifier is returned for an exported issue without an identifier.
var ErrMissingIdentifier = errors.New("huly issue has no identifier")

// LoadFile reads a Huly export from path.
func LoadFile(path string) ([]types.HulyIssue, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Huly export: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array or JSONL export. Identifiers and parent
// references are trimmed and uppercased.
func Parse(data []byte) ([]types.HulyIssue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []types.HulyIssue{}, nil
	}

	var issues []types.HulyIssue
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &issues); err != nil {
			return nil, fmt.Errorf("invalid Huly export: %w", err)
		}
	} else {
		var err error
		issues, err = parseLines(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
	}

	for i := range issues {
		issues[i].Identifier = normalize(issues[i].Identifier)
		issues[i].Parent = normalize(issues[i].Parent)
		if issues[i].Identifier == "" {
			return nil, fmt.Errorf("entry %d: %w", i+1, ErrMissingIdentifier)
		}
	}
	return issues, nil
}

func parseLines(r io.Reader) ([]types.HulyIssue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var issues []types.HulyIssue
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var issue types.HulyIssue
		if err := json.Unmarshal(line, &issue); err != nil {
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}
		issues = append(issues, issue)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Huly export: %w", err)
	}
	return issues, nil
}

func normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ParentRelationships returns one relationship per issue with a parent,
// expressed in Huly identifiers.
func ParentRelationships(issues []types.HulyIssue) []types.Relationship {
	var rels []types.Relationship
	for _, issue := range issues {
		if issue.Parent == "" {
			continue
		}
		rels = append(rels, types.Relationship{
			ChildID:  issue.Identifier,
			ParentID: issue.Parent,
			Source:   types.SourceHulyParent,
			Success:  true,
		})
	}
	return rels
}

// ModifiedSince keeps issues modified at or after since. Issues without a
// modification time are kept.
func ModifiedSince(issues []types.HulyIssue, since time.Time) []types.HulyIssue {
	if since.IsZero() {
		return issues
	}
	out := make([]types.HulyIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.ModifiedOn.IsZero() || !issue.ModifiedOn.Before(since) {
			out = append(out, issue)
		}
	}
	return out
}
