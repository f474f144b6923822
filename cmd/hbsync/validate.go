package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hulysync/beads-bridge/internal/types"
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	GroupID: "audit",
	Short:   "Report inconsistent parent links in the mapping database",
	Long: `Audit the mapping database without changing anything.

Reported findings:
  mismatch  exactly one of the Huly parent and beads parent is recorded
  orphan    the recorded Huly parent has no row in the database

With --prefix (or the prefix config key) only identifiers in that Huly
project are audited. Exits 1 when --strict is set and there are findings.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		strict, _ := cmd.Flags().GetBool("strict")

		res, err := runValidate(cmd.Context(), os.Stdout, format)
		if err != nil {
			fatalf("%v", err)
		}
		if strict && !res.Valid {
			os.Exit(1)
		}
	},
}

// runValidate audits the mapping database and writes the report. The
// database is closed before it returns.
func runValidate(ctx context.Context, w io.Writer, format string) (types.ValidationResult, error) {
	a := newApp()
	db, err := a.openStore(ctx)
	if err != nil {
		return types.ValidationResult{}, err
	}
	defer db.Close()

	res, err := a.validate(ctx, db)
	if err != nil {
		return types.ValidationResult{}, err
	}
	return res, writeValidation(w, res, format)
}

func init() {
	validateCmd.Flags().StringP("format", "f", formatText, "Output format (text, json, yaml)")
	validateCmd.Flags().Bool("strict", false, "Exit 1 if any finding is reported")
	rootCmd.AddCommand(validateCmd)
}
