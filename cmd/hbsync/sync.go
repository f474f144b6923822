package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/timeparse"
	"github.com/hulysync/beads-bridge/internal/types"
	"github.com/hulysync/beads-bridge/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push the Huly hierarchy into beads",
	Long: `For every Huly issue with a parent, look up the beads IDs of the child and
the parent in the mapping database and run

  bd dep add <child> <parent> --type parent-child

Issues without a mapping on either side are skipped; run 'hbsync link' first.
A failed bd call skips that issue and the sync continues. On success the
child's mapping row records both parents.

--since limits the run to Huly issues modified after a point in time:
  hbsync sync --since 2025-06-01
  hbsync sync --since 48h
  hbsync sync --since "last monday"`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		sinceStr, _ := cmd.Flags().GetString("since")

		var since time.Time
		if sinceStr != "" {
			var err error
			since, err = timeparse.ParseSince(sinceStr, time.Now())
			if err != nil {
				fatalf("invalid --since: %v", err)
			}
		}

		result, err := newApp().syncFromHuly(cmd.Context(), since, dryRun)
		if err != nil {
			fatalf("%v", err)
		}

		printBatchResult("Sync", result, dryRun)
		if len(result.Errors) > 0 {
			fatalf("sync finished with %d errors", len(result.Errors))
		}
	},
}

func printBatchResult(what string, result types.BatchResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = ui.RenderWarn("[dry run] ")
	}
	icon := ui.RenderPassIcon()
	if len(result.Errors) > 0 {
		icon = ui.RenderFailIcon()
	} else if result.Skipped > 0 {
		icon = ui.RenderWarnIcon()
	}

	fmt.Printf("%s%s %s complete\n", prefix, icon, what)
	fmt.Printf("   Synced:  %d\n", result.Synced)
	fmt.Printf("   Skipped: %d\n", result.Skipped)
	fmt.Printf("   Errors:  %d\n", len(result.Errors))
	for _, err := range result.Errors {
		fmt.Printf("     %s %v\n", ui.RenderFailIcon(), err)
	}
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "Report what would be synced without calling bd")
	syncCmd.Flags().String("since", "", "Only sync Huly issues modified since this time")
	rootCmd.AddCommand(syncCmd)
}
