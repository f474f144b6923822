package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hulysync/beads-bridge/internal/batchsync"
	"github.com/hulysync/beads-bridge/internal/beadscli"
	"github.com/hulysync/beads-bridge/internal/beadsjsonl"
	"github.com/hulysync/beads-bridge/internal/config"
	"github.com/hulysync/beads-bridge/internal/consistency"
	"github.com/hulysync/beads-bridge/internal/huly"
	"github.com/hulysync/beads-bridge/internal/lookup"
	"github.com/hulysync/beads-bridge/internal/reconcile"
	"github.com/hulysync/beads-bridge/internal/relationships"
	"github.com/hulysync/beads-bridge/internal/store"
	"github.com/hulysync/beads-bridge/internal/types"
)

// app wires configuration to the reconciliation packages. Each method is
// one command's work, without any printing or exiting.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	runner beadscli.Runner
}

func newApp() *app {
	return &app{
		cfg:    cfg,
		logger: logger,
		runner: beadscli.NewExecRunner(cfg.CommandTimeout),
	}
}

func (a *app) client() *beadscli.Client {
	return beadscli.New(a.runner, a.cfg.BeadsBin)
}

func (a *app) openStore(ctx context.Context) (*store.DB, error) {
	db, err := store.OpenContext(ctx, a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping database %s: %w", a.cfg.DB, err)
	}
	return db, nil
}

// beadsIssues reads the beads export oldest-first.
func (a *app) beadsIssues() ([]types.Issue, error) {
	issues, err := beadsjsonl.ReadFile(a.cfg.BeadsJSONL)
	if err != nil {
		return nil, err
	}
	beadsjsonl.SortOldestFirst(issues)
	return issues, nil
}

func (a *app) hulyIssues() ([]types.HulyIssue, error) {
	return huly.LoadFile(a.cfg.HulyExport)
}

func (a *app) link(ctx context.Context, dryRun bool) (reconcile.LinkStats, error) {
	issues, err := a.beadsIssues()
	if err != nil {
		return reconcile.LinkStats{}, err
	}
	hulyIssues, err := a.hulyIssues()
	if err != nil {
		return reconcile.LinkStats{}, err
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return reconcile.LinkStats{}, err
	}
	defer db.Close()

	idx := lookup.BuildIssueLookups(issues)
	a.logger.Debug("built lookups",
		"issues", len(idx.ByID), "huly_ids", len(idx.ByHulyID), "titles", len(idx.ByTitle), "parents", len(idx.ParentMap))

	return reconcile.LinkMappings(ctx, db, hulyIssues, idx, reconcile.LinkOptions{DryRun: dryRun, Logger: a.logger}), nil
}

// extract lists beads parent-child relationships, either from the export
// alone or by asking bd for each issue's dependency tree.
func (a *app) extract(ctx context.Context, remote bool) ([]types.Relationship, error) {
	issues, err := a.beadsIssues()
	if err != nil {
		return nil, err
	}
	if remote {
		ex := relationships.NewExtractor(a.client(), a.logger)
		return ex.GetAllParentChildRelationships(ctx, a.cfg.Project, issues), nil
	}
	return relationships.FromLookup(lookup.BuildIssueLookups(issues), issues), nil
}

// hulyRelationships lists the parent links recorded in the Huly export.
func (a *app) hulyRelationships() ([]types.Relationship, error) {
	issues, err := a.hulyIssues()
	if err != nil {
		return nil, err
	}
	return huly.ParentRelationships(issues), nil
}

// syncFromHuly pushes Huly parents into beads. A non-zero since limits the
// run to Huly issues modified from then on.
func (a *app) syncFromHuly(ctx context.Context, since time.Time, dryRun bool) (types.BatchResult, error) {
	hulyIssues, err := a.hulyIssues()
	if err != nil {
		return types.BatchResult{}, err
	}
	hulyIssues = huly.ModifiedSince(hulyIssues, since)

	db, err := a.openStore(ctx)
	if err != nil {
		return types.BatchResult{}, err
	}
	defer db.Close()

	engine := batchsync.New(a.client(), db, batchsync.Options{Logger: a.logger})
	return engine.SyncAllParentChildFromHuly(ctx, a.cfg.Project, hulyIssues, batchsync.Options{DryRun: dryRun}), nil
}

// add creates parent-child dependencies in beads and records them on the
// children's mapping rows.
func (a *app) add(ctx context.Context, rels []types.Relationship, dryRun bool) (types.BatchResult, error) {
	db, err := a.openStore(ctx)
	if err != nil {
		return types.BatchResult{}, err
	}
	defer db.Close()

	engine := batchsync.New(a.client(), db, batchsync.Options{Logger: a.logger})
	return engine.BatchCreateDependencies(ctx, a.cfg.Project, rels, batchsync.Options{DryRun: dryRun}), nil
}

func (a *app) remove(ctx context.Context, rels []types.Relationship, dryRun bool) types.BatchResult {
	engine := batchsync.New(a.client(), nil, batchsync.Options{Logger: a.logger})
	return engine.BatchRemoveDependencies(ctx, a.cfg.Project, rels, batchsync.Options{DryRun: dryRun})
}

func (a *app) validate(ctx context.Context, reader consistency.RecordReader) (types.ValidationResult, error) {
	return consistency.ValidateParentChildConsistency(ctx, reader, a.cfg.Prefix)
}

// fatalf prints an error in the CLI's usual format and exits.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
