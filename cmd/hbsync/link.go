package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/ui"
)

var linkCmd = &cobra.Command{
	Use:     "link",
	GroupID: "sync",
	Short:   "Match Huly issues to beads issues and record the mapping",
	Long: `Read the Huly export and the beads issues.jsonl export, match each Huly
issue to a beads issue, and upsert one row per Huly issue into the mapping
database.

Matching tries, in order:
  1. A "Huly Issue: <ID>" or "Synced from Huly: <ID>" marker in the beads
     description or comments
  2. The title, ignoring case and leading tags such as [P1], [Bug], [WIP]

Each row records the Huly parent and the beads parent, so 'hbsync validate'
can report hierarchies that disagree.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		stats, err := newApp().link(cmd.Context(), dryRun)
		if err != nil {
			fatalf("%v", err)
		}

		prefix := ""
		if dryRun {
			prefix = ui.RenderWarn("[dry run] ")
		}
		fmt.Printf("%s%s Linked %d issues (%d by title), %d unmatched\n",
			prefix, ui.RenderPassIcon(), stats.Linked, stats.ByTitle, stats.Unmatched)

		if len(stats.Errors) > 0 {
			for _, err := range stats.Errors {
				fmt.Printf("  %s %v\n", ui.RenderFailIcon(), err)
			}
			fatalf("%d mapping rows could not be written", len(stats.Errors))
		}
	},
}

func init() {
	linkCmd.Flags().Bool("dry-run", false, "Resolve matches without writing the database")
	rootCmd.AddCommand(linkCmd)
}
