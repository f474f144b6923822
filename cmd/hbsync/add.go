package main

import (
	"os"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add <child>:<parent>...",
	GroupID: "sync",
	Short:   "Add parent-child dependencies to beads",
	Long: `Add one or more parent-child dependencies, given as beads ID pairs:

  hbsync add bd-a1b2:bd-c3d4 bd-e5f6:bd-c3d4

Each pair runs 'bd dep add <child> <parent> --type parent-child'. When the
child has a mapping row, the new parent is recorded on it; a parent without
a row leaves the Huly parent empty, which 'hbsync validate' reports.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		rels, err := parsePairs(args)
		if err != nil {
			fatalf("%v", err)
		}

		result, err := newApp().add(cmd.Context(), rels, dryRun)
		if err != nil {
			fatalf("%v", err)
		}
		printBatchResult("Add", result, dryRun)
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	addCmd.Flags().Bool("dry-run", false, "Report what would be added without calling bd")
	rootCmd.AddCommand(addCmd)
}
