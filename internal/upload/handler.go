package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/gate"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// Handler is the upload lifecycle stage.
type Handler struct {
	layout  dataset.Layout
	project string
	store   remotestore.Store
	gate    *gate.Gate
	logger  *slog.Logger

	loginOnce sync.Once
	loginErr  error
}

// NewHandler constructs the upload stage handler. g decides which clusters
// finished conversion.
func NewHandler(cfg *config.Config, store remotestore.Store, g *gate.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		layout:  dataset.NewLayout(cfg),
		project: cfg.Remote.Project,
		store:   store,
		gate:    g,
		logger:  logging.NewComponentLogger(logger, "upload"),
	}
}

func (h *Handler) Name() stage.Name { return stage.Upload }

// SetLogger swaps the dispatch-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "upload")
}

// Discover lists clusters whose conversion is complete.
func (h *Handler) Discover(context.Context) ([]string, error) {
	ids, err := h.layout.ClustersWithOutput()
	if err != nil {
		return nil, err
	}
	ready := ids[:0]
	for _, id := range ids {
		if h.gate.IsComplete(id, stage.Convert) {
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// Execute stores the cluster's converted artifacts and returns the catalog
// row describing them.
func (h *Handler) Execute(ctx context.Context, clusterID string) (*stage.Result, error) {
	logger := logging.WithContext(ctx, h.logger)
	for _, a := range dataset.Artifacts() {
		path := h.layout.OutputPath(clusterID, a)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrInputNotFound, "upload", "check outputs", path, err)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := h.login(ctx); err != nil {
		return nil, err
	}

	folderID, err := h.store.CreateFolder(ctx, h.project, clusterID)
	if err != nil {
		return nil, fmt.Errorf("create cluster folder: %w", err)
	}
	row := map[string]string{catalog.ColumnFolderID: folderID}
	for _, a := range dataset.Artifacts() {
		id, err := h.store.Put(ctx, h.layout.OutputPath(clusterID, a), folderID, a.FileName(h.layout.Threshold))
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", a, err)
		}
		row[a.CatalogColumn()] = id
		logger.Debug("artifact stored", logging.String("artifact", a.String()), logging.String("id", id))
	}

	result := &stage.Result{ClusterID: clusterID, Row: row}
	if err := writeReceipt(h.layout.ReceiptPath(clusterID), *result); err != nil {
		return nil, err
	}
	logger.Info("cluster uploaded", logging.String("folder", folderID))
	return result, nil
}

// HealthCheck reports whether the remote store accepts credentials.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.login(ctx); err != nil {
		return stage.Unhealthy(stage.Upload, err.Error())
	}
	return stage.Healthy(stage.Upload)
}

func (h *Handler) login(ctx context.Context) error {
	h.loginOnce.Do(func() {
		h.loginErr = h.store.Login(ctx)
	})
	return h.loginErr
}
