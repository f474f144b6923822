package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/types"
	"github.com/hulysync/beads-bridge/internal/ui"
)

var removeCmd = &cobra.Command{
	Use:     "remove <child>:<parent>...",
	GroupID: "sync",
	Short:   "Remove parent-child dependencies from beads",
	Long: `Remove one or more parent-child dependencies, given as beads ID pairs:

  hbsync remove bd-a1b2:bd-c3d4 bd-e5f6:bd-c3d4

The mapping database is not modified. You are asked to confirm unless
--yes or --dry-run is given.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		rels, err := parsePairs(args)
		if err != nil {
			fatalf("%v", err)
		}

		if !dryRun && !yes {
			ok, err := ui.Confirm(
				fmt.Sprintf("Remove %d parent-child dependencies?", len(rels)),
				describePairs(rels))
			if err != nil {
				fatalf("%v", err)
			}
			if !ok {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return
			}
		}

		result := newApp().remove(cmd.Context(), rels, dryRun)
		printBatchResult("Remove", result, dryRun)
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
	},
}

// parsePairs parses child:parent arguments.
func parsePairs(args []string) ([]types.Relationship, error) {
	rels := make([]types.Relationship, 0, len(args))
	for _, arg := range args {
		child, parent, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q (expected <child>:<parent>)", arg)
		}
		rels = append(rels, types.Relationship{
			ChildID:  strings.TrimSpace(child),
			ParentID: strings.TrimSpace(parent),
		})
	}
	return rels, nil
}

func describePairs(rels []types.Relationship) string {
	var b strings.Builder
	for i, r := range rels {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.String())
	}
	return b.String()
}

func init() {
	removeCmd.Flags().Bool("dry-run", false, "Report what would be removed without calling bd")
	removeCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(removeCmd)
}
