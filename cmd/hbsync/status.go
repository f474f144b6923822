package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/types"
	"github.com/hulysync/beads-bridge/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "audit",
	Short:   "Show mapping database status",
	Long: `Display the mapping database location and size, how many Huly issues are
linked to beads, and how many carry parent links.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := newApp()

		info, err := os.Stat(a.cfg.DB)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Mapping database not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'hbsync link' to create it\n\n")
			return
		}
		if err != nil {
			fatalf("checking database: %v", err)
		}

		s, err := a.status(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s Mapping database\n\n", ui.RenderAccent("📊"))
		fmt.Printf("   Location: %s\n", a.cfg.DB)
		fmt.Printf("   Size:     %s\n", formatSize(info.Size()))
		if used := v.ConfigFileUsed(); used != "" {
			fmt.Printf("   Config:   %s\n", used)
		}
		fmt.Printf("\n   Huly issues:      %d\n", s.total)
		fmt.Printf("   Linked to beads:  %d\n", s.linked)
		fmt.Printf("   With Huly parent: %d\n", s.hulyParents)
		fmt.Printf("   With beads parent: %d\n\n", s.beadsParents)
	},
}

type mappingSummary struct {
	total, linked, hulyParents, beadsParents int
}

// status summarizes the mapping database. The database is closed before
// it returns.
func (a *app) status(ctx context.Context) (mappingSummary, error) {
	db, err := a.openStore(ctx)
	if err != nil {
		return mappingSummary{}, err
	}
	defer db.Close()

	total, err := db.Count(ctx)
	if err != nil {
		return mappingSummary{}, err
	}
	records, err := db.GetAllIssues(ctx)
	if err != nil {
		return mappingSummary{}, err
	}
	s := summarize(records)
	s.total = total
	return s, nil
}

// summarize counts links in records. total is left for the caller.
func summarize(records []types.DbRecord) mappingSummary {
	var s mappingSummary
	for _, r := range records {
		if r.BeadsIssueID != "" {
			s.linked++
		}
		if r.ParentHulyID != "" {
			s.hulyParents++
		}
		if r.ParentBeadsID != "" {
			s.beadsParents++
		}
	}
	return s
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
