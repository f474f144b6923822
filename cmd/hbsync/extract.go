package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/types"
	"github.com/hulysync/beads-bridge/internal/ui"
)

var extractCmd = &cobra.Command{
	Use:     "extract",
	GroupID: "audit",
	Short:   "List beads parent-child relationships",
	Long: `List every parent-child relationship in the beads project.

By default relationships come from the parent-child dependencies in
issues.jsonl. With --remote, 'bd dep tree <id> --json' is queried for each
issue that has dependencies; issues whose query fails are skipped and logged.
With --huly, the parent links of the Huly export are listed instead, by
Huly identifier.`,
	Run: func(cmd *cobra.Command, args []string) {
		remote, _ := cmd.Flags().GetBool("remote")
		fromHuly, _ := cmd.Flags().GetBool("huly")
		asJSON, _ := cmd.Flags().GetBool("json")

		var (
			rels []types.Relationship
			err  error
		)
		if fromHuly {
			rels, err = newApp().hulyRelationships()
		} else {
			rels, err = newApp().extract(cmd.Context(), remote)
		}
		if err != nil {
			fatalf("%v", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rels); err != nil {
				fatalf("encoding relationships: %v", err)
			}
			return
		}

		if len(rels) == 0 {
			fmt.Printf("%s No parent-child relationships found\n", ui.RenderInfoIcon())
			return
		}
		for _, r := range rels {
			fmt.Printf("%s -> %s %s\n", ui.RenderID(r.ChildID), ui.RenderID(r.ParentID), ui.RenderMuted("("+string(r.Source)+")"))
		}
		fmt.Printf("\n%d relationships\n", len(rels))
	},
}

func init() {
	extractCmd.Flags().Bool("remote", false, "Query bd for each issue's dependency tree")
	extractCmd.Flags().Bool("huly", false, "List parent links from the Huly export")
	extractCmd.Flags().Bool("json", false, "Output JSON")
	rootCmd.AddCommand(extractCmd)
}
