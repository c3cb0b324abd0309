package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/convert"
	"clustersync/internal/dataset"
	"clustersync/internal/deletion"
	"clustersync/internal/download"
	"clustersync/internal/gate"
	"clustersync/internal/history"
	"clustersync/internal/preflight"
	"clustersync/internal/remotestore"
	"clustersync/internal/stage"
	"clustersync/internal/upload"
)

// Runtime holds the collaborators wired from configuration. Close releases
// them.
type Runtime struct {
	Config       *config.Config
	Layout       dataset.Layout
	Store        remotestore.Store
	Ledger       *catalog.Ledger
	History      *history.Store
	Gate         *gate.Gate
	Synchronizer *Synchronizer
}

// NewLedger builds the catalog ledger described by cfg.
func NewLedger(cfg *config.Config, store remotestore.Store, logger *slog.Logger) *catalog.Ledger {
	return catalog.NewLedger(catalog.LedgerOptions{
		Store:     store,
		Parent:    cfg.Catalog.Parent,
		Name:      cfg.Catalog.Name,
		LockPath:  cfg.CatalogLockPath(),
		SpoolPath: cfg.CatalogSpoolPath(),
		Logger:    logger,
	})
}

// Build wires the remote store, history, ledger, gate, and stage handlers.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := remotestore.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return BuildWith(cfg, store, hist, logger), nil
}

// BuildWith wires a runtime around an existing store and history.
func BuildWith(cfg *config.Config, store remotestore.Store, hist *history.Store, logger *slog.Logger) *Runtime {
	layout := dataset.NewLayout(cfg)
	g := gate.New(layout)
	ledger := NewLedger(cfg, store, logger)

	downloader := download.NewHandler(cfg, store, logger)
	g.SetCheck(stage.Download, downloader.Verify)

	stages := StageSet{
		Download: downloader,
		Convert:  convert.NewHandler(cfg, logger),
		Upload:   upload.NewHandler(cfg, store, g, logger),
		Delete:   deletion.NewHandler(cfg, store, ledger, logger),
	}
	sync := New(Options{
		Stages:   stages,
		Gate:     g,
		Ledger:   ledger,
		History:  hist,
		PoolSize: cfg.Workers.PoolSize,
		Preflight: func(ctx context.Context, name stage.Name) error {
			return preflight.Failures(preflight.ForStage(ctx, cfg, name, store))
		},
		Logger: logger,
	})
	return &Runtime{
		Config:       cfg,
		Layout:       layout,
		Store:        store,
		Ledger:       ledger,
		History:      hist,
		Gate:         g,
		Synchronizer: sync,
	}
}

// Close releases the history database.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.History.Close()
}
