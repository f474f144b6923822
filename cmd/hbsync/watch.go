package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "audit",
	Short:   "Re-run the consistency audit whenever the mapping changes",
	Long: `Watch the mapping database and both export files, and re-run
'hbsync validate' after each burst of changes settles.

Nothing is synced; this only reports. Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		debounce, _ := cmd.Flags().GetDuration("debounce")

		runs, err := runWatch(cmd.Context(), debounce)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("\nStopped after %d audits\n", runs)
	},
}

// runWatch audits until ctx is cancelled and returns the number of audits.
func runWatch(ctx context.Context, debounce time.Duration) (int64, error) {
	a := newApp()
	db, err := a.openStore(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	fw, err := watch.NewFileWatcher()
	if err != nil {
		return 0, err
	}
	defer fw.Stop()
	if err := fw.Start(a.cfg.DB, a.cfg.BeadsJSONL, a.cfg.HulyExport); err != nil {
		return 0, err
	}

	audit := func(ctx context.Context) error {
		res, err := a.validate(ctx, db)
		if err != nil {
			return err
		}
		a.logger.Info("audit complete",
			"valid", res.Valid, "mismatches", len(res.Mismatches), "orphans", len(res.Orphans))
		fmt.Printf("\n[%s]\n", time.Now().Format(time.TimeOnly))
		writeValidationText(os.Stdout, res)
		return nil
	}

	auditor, err := watch.NewAuditor(fw, audit, &watch.Config{
		DebounceInterval: debounce,
		AuditOnStart:     true,
		Logger:           a.logger,
	})
	if err != nil {
		return 0, err
	}

	fmt.Printf("Watching %s\n", a.cfg.DB)
	fmt.Println("Press Ctrl+C to stop...")

	if err := auditor.Run(ctx); err != nil {
		return auditor.Runs(), err
	}
	return auditor.Runs(), nil
}

func init() {
	watchCmd.Flags().Duration("debounce", watch.DefaultConfig().DebounceInterval, "Quiet period before re-auditing")
	rootCmd.AddCommand(watchCmd)
}
