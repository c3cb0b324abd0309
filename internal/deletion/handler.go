package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// Handler is the delete lifecycle stage.
type Handler struct {
	roots        []string
	policy       catalog.Policy
	metadataPath string
	store        remotestore.Store
	ledger       *catalog.Ledger
	logger       *slog.Logger

	mu       sync.Mutex
	snapshot *catalog.Table

	loginOnce sync.Once
	loginErr  error
}

// NewHandler constructs the delete stage handler.
func NewHandler(cfg *config.Config, store remotestore.Store, ledger *catalog.Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		roots:        []string{cfg.Paths.DatasetDir, cfg.Paths.ResultsDir},
		policy:       catalog.PolicyFromConfig(cfg),
		metadataPath: cfg.Paths.MetadataFile,
		store:        store,
		ledger:       ledger,
		logger:       logging.NewComponentLogger(logger, "deletion"),
	}
}

func (h *Handler) Name() stage.Name { return stage.Delete }

// SetLogger swaps the dispatch-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "deletion")
}

// Discover plans the deletion: every cluster in the metadata table that the
// retention policy rejects. It also fetches the current catalog, which
// Execute uses to resolve remote folders.
func (h *Handler) Discover(ctx context.Context) ([]string, error) {
	md, err := catalog.LoadMetadata(h.metadataPath)
	if err != nil {
		return nil, err
	}
	if !md.HasFragments {
		return nil, &services.SchemaError{Kind: "metadata", Column: catalog.ColumnNumFragments, Path: h.metadataPath, Detail: "required for deletion planning"}
	}
	if err := h.login(ctx); err != nil {
		return nil, err
	}
	table, err := h.ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	h.mu.Lock()
	h.snapshot = table
	h.mu.Unlock()

	targets := h.policy.DeletionTargets(md)
	h.logger.Info("deletion planned",
		logging.Int("clusters", len(md.Clusters)),
		logging.Int("targets", len(targets)),
		logging.Int64("min_fragments", h.policy.MinFragments),
	)
	return targets, nil
}

// Execute removes a cluster's local directories and remote folder. The
// returned result removes its catalog row; clusters without a row return
// nil.
func (h *Handler) Execute(ctx context.Context, clusterID string) (*stage.Result, error) {
	logger := logging.WithContext(ctx, h.logger)
	if err := RemoveClusterDirs(h.roots, clusterID, logger).Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "deletion", "remove local dirs", clusterID, err)
	}

	h.mu.Lock()
	table := h.snapshot
	h.mu.Unlock()
	if table == nil {
		return nil, services.Wrap(services.ErrValidation, "deletion", "resolve folder", "catalog not loaded; call Discover first", nil)
	}
	if table.Find(catalog.ColumnClusterID, clusterID) < 0 {
		return nil, nil
	}

	if folderID, ok := catalog.FolderID(table, clusterID); ok {
		if err := h.login(ctx); err != nil {
			return nil, err
		}
		err := h.store.Delete(ctx, folderID)
		switch {
		case err == nil:
			logger.Info("deleted remote folder", logging.String("folder", folderID))
		case errors.Is(err, services.ErrRemoteConflict):
			logger.Info("remote folder already deleted", logging.String("folder", folderID))
		default:
			return nil, fmt.Errorf("delete remote folder: %w", err)
		}
	}
	return &stage.Result{ClusterID: clusterID, Remove: true}, nil
}

// HealthCheck reports whether the remote store accepts credentials.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.login(ctx); err != nil {
		return stage.Unhealthy(stage.Delete, err.Error())
	}
	return stage.Healthy(stage.Delete)
}

func (h *Handler) login(ctx context.Context) error {
	h.loginOnce.Do(func() {
		h.loginErr = h.store.Login(ctx)
	})
	return h.loginErr
}
