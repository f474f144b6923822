// Package beadscli wraps the dependency subcommands of the bd CLI.
//
// All process execution goes through a Runner so reconciliation logic can be
// tested without a real bd binary:
//
//	client := beadscli.New(beadscli.NewExecRunner(30*time.Second), "bd")
//	nodes, err := client.DepTree(ctx, "/path/to/project", "bd-a1b2")
//
// In tests, use RunnerFunc:
//
//	client := beadscli.New(beadscli.RunnerFunc(func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
//	    return []byte(`[{"id":"bd-a1b2","depth":0}]`), nil
//	}), "bd")
package beadscli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hulysync/beads-bridge/internal/types"
)

// DefaultBinary is the bd executable looked up on PATH.
const DefaultBinary = "bd"

// TreeNode is one entry of `bd dep tree --json` output.
// Depth 0 is the queried issue itself.
type TreeNode struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Depth    int    `json:"depth"`
	ParentID string `json:"parent_id,omitempty"`
}

// Client runs bd dependency commands scoped to a project directory.
type Client struct {
	runner Runner
	binary string
}

// New creates a Client. An empty binary means DefaultBinary.
func New(runner Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{runner: runner, binary: binary}
}

// DepTree returns the dependency tree of issueID.
func (c *Client) DepTree(ctx context.Context, projectPath, issueID string) ([]TreeNode, error) {
	if issueID == "" {
		return nil, fmt.Errorf("dep tree: %w: empty issue id", ErrInvalidArgument)
	}

	out, err := c.run(ctx, projectPath, "dep", "tree", issueID, "--json")
	if err != nil {
		return nil, err
	}

	return ParseDepTree(out)
}

// AddDependency records childID as a child of parentID.
func (c *Client) AddDependency(ctx context.Context, projectPath, childID, parentID string) error {
	if childID == "" || parentID == "" {
		return fmt.Errorf("dep add: %w: child=%q parent=%q", ErrInvalidArgument, childID, parentID)
	}
	_, err := c.run(ctx, projectPath, "dep", "add", childID, parentID, "--type", string(types.DepParentChild))
	return err
}

// RemoveDependency removes the dependency of childID on parentID.
func (c *Client) RemoveDependency(ctx context.Context, projectPath, childID, parentID string) error {
	if childID == "" || parentID == "" {
		return fmt.Errorf("dep remove: %w: child=%q parent=%q", ErrInvalidArgument, childID, parentID)
	}
	_, err := c.run(ctx, projectPath, "dep", "remove", childID, parentID)
	return err
}

func (c *Client) run(ctx context.Context, projectPath string, args ...string) ([]byte, error) {
	out, err := c.runner.Run(ctx, projectPath, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %v: %w", ErrCommandFailed, c.binary, args, err)
	}
	return out, nil
}

// ParseDepTree decodes `bd dep tree --json` output.
func ParseDepTree(out []byte) ([]TreeNode, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty dep tree output", ErrMalformedResponse)
	}

	var nodes []TreeNode
	if err := json.Unmarshal(trimmed, &nodes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nodes, nil
}

// FirstAtDepth returns the first node with the given depth.
func FirstAtDepth(nodes []TreeNode, depth int) (TreeNode, bool) {
	for _, n := range nodes {
		if n.Depth == depth {
			return n, true
		}
	}
	return TreeNode{}, false
}
