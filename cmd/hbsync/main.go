// Command hbsync reconciles parent-child relationships between Huly and beads.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hulysync/beads-bridge/internal/config"
	"github.com/hulysync/beads-bridge/internal/logging"
	"github.com/hulysync/beads-bridge/internal/ui"
)

var (
	v         *viper.Viper
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hbsync",
	Short: "Reconcile Huly and beads issue hierarchies",
	Long: `hbsync keeps parent-child relationships consistent between Huly and a
beads project.

It links Huly issues to beads issues (by an embedded "Huly Issue: PROJ-42"
marker or by normalized title), records the mapping in a local SQLite
database, pushes the Huly hierarchy into beads with 'bd dep add', and audits
the mapping for one-sided or dangling parent links.

Configuration is read from .hbsync.yaml in the project directory or $HOME,
from HBSYNC_* environment variables, and from flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.ConfigureColor()

		project, _ := cmd.Flags().GetString(config.KeyProject)
		v = config.New(project)
		bindFlags(cmd)

		var err error
		cfg, err = config.Load(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger, logCloser = logging.Setup(logging.Options{
			Level: cfg.Log.Level,
			JSON:  cfg.Log.JSON,
			File:  cfg.Log.File,
		})
		logger.Debug("configuration loaded", "file", v.ConfigFileUsed(), "project", cfg.Project, "db", cfg.DB)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// bindFlags binds every persistent flag of the root command to viper so
// flags override file and environment values.
func bindFlags(cmd *cobra.Command) {
	for _, key := range []string{
		config.KeyProject, config.KeyDB, config.KeyBeadsBin, config.KeyPrefix,
		config.KeyCommandTimeout, config.KeyLogLevel, config.KeyLogJSON, config.KeyLogFile,
		config.KeyHulyExport, config.KeyBeadsJSONL,
	} {
		if f := cmd.Flags().Lookup(key); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringP(config.KeyProject, "C", d.Project, "Beads project directory")
	pf.String(config.KeyDB, d.DB, "Mapping database path (relative to project)")
	pf.String(config.KeyBeadsBin, d.BeadsBin, "bd executable")
	pf.String(config.KeyPrefix, d.Prefix, "Only audit Huly identifiers with this project prefix")
	pf.Duration(config.KeyCommandTimeout, d.CommandTimeout, "Timeout for each bd invocation")
	pf.String(config.KeyLogLevel, d.Log.Level, "Log level (debug, info, warn, error)")
	pf.Bool(config.KeyLogJSON, d.Log.JSON, "Write logs as JSON")
	pf.String(config.KeyLogFile, d.Log.File, "Write logs to a rotated file instead of stderr")
	pf.String(config.KeyHulyExport, d.HulyExport, "Huly issue export (JSON array or JSONL)")
	pf.String(config.KeyBeadsJSONL, d.BeadsJSONL, "beads issues.jsonl export")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "audit", Title: "Audit Commands:"},
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
