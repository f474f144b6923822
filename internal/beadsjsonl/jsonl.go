// Package beadsjsonl reads the beads issues.jsonl export.
package beadsjsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hulysync/beads-bridge/internal/types"
)

// DefaultPath is where bd writes its export inside a project.
const DefaultPath = ".beads/issues.jsonl"

const maxLineSize = 16 * 1024 * 1024

// ReadFile reads a JSONL file and returns parsed issues
func ReadFile(jsonlPath string) ([]types.Issue, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(jsonlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	return ReadIssues(file)
}

// ReadIssues parses one issue per line. Blank lines are ignored. Missing
// dependencies and comments are defaulted to empty slices.
func ReadIssues(r io.Reader) ([]types.Issue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var issues []types.Issue
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var issue types.Issue
		if err := json.Unmarshal(line, &issue); err != nil {
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}

		// Apply defaults for missing fields
		issue.SetDefaults()

		issues = append(issues, issue)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}

	return issues, nil
}

// SortOldestFirst orders issues by CreatedAt, keeping file order for ties.
// Lookup indices keep the first occurrence of duplicate titles, so callers
// sort before building them.
func SortOldestFirst(issues []types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.Before(issues[j].CreatedAt)
	})
}
