package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

const indexSuffix = dataset.PrimarySuffix + dataset.IndexSuffix

// Handler is the download lifecycle stage.
type Handler struct {
	layout       dataset.Layout
	policy       catalog.Policy
	metadataPath string
	store        remotestore.Store
	logger       *slog.Logger

	mu       sync.Mutex
	metadata *catalog.Metadata

	loginOnce sync.Once
	loginErr  error
}

// NewHandler constructs the download stage handler.
func NewHandler(cfg *config.Config, store remotestore.Store, logger *slog.Logger) *Handler {
	return &Handler{
		layout:       dataset.NewLayout(cfg),
		policy:       catalog.PolicyFromConfig(cfg),
		metadataPath: cfg.Paths.MetadataFile,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "download"),
	}
}

func (h *Handler) Name() stage.Name { return stage.Download }

// SetLogger swaps the dispatch-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "download")
}

// SetMetadata installs an already parsed metadata table.
func (h *Handler) SetMetadata(md *catalog.Metadata) {
	h.mu.Lock()
	h.metadata = md
	h.mu.Unlock()
}

// Discover reloads the metadata table and returns the eligible clusters in
// table order.
func (h *Handler) Discover(context.Context) ([]string, error) {
	md, err := catalog.LoadMetadata(h.metadataPath)
	if err != nil {
		return nil, err
	}
	h.SetMetadata(md)

	eligible := h.policy.Downloads(md)
	ids := make([]string, 0, len(eligible))
	for _, c := range eligible {
		ids = append(ids, c.ID)
	}
	h.logger.Info("download candidates selected",
		logging.Int("clusters", len(md.Clusters)),
		logging.Int("eligible", len(ids)),
		logging.Bool("require_index", h.policy.RequireIndex),
	)
	return ids, nil
}

// Execute fetches the primary and, when referenced, index objects for a
// cluster. A directory that already holds a verified pair is left alone.
func (h *Handler) Execute(ctx context.Context, clusterID string) (*stage.Result, error) {
	logger := logging.WithContext(ctx, h.logger)
	cluster, ok := h.lookup(clusterID)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "download", "lookup", fmt.Sprintf("cluster %s is not in the metadata table", clusterID), nil)
	}
	if err := h.login(ctx); err != nil {
		return nil, err
	}

	dir := h.layout.DownloadDir(clusterID)
	if _, err := os.Stat(dir); err == nil {
		if h.Verify(clusterID) == nil {
			logger.Info("download already present", logging.String("dir", dir))
			return nil, nil
		}
		logging.WarnWithContext(logger, "incomplete download; removing directory", "partial_download",
			logging.String("dir", dir),
			logging.String(logging.FieldImpact, "cluster files are fetched again from scratch"),
		)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove partial download %s: %w", dir, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	logger.Info("downloading cluster", logging.String("primary", cluster.PrimaryRef), logging.String("index", cluster.IndexRef))
	if _, err := h.store.Get(ctx, cluster.PrimaryRef, dir); err != nil {
		return nil, fmt.Errorf("fetch primary: %w", err)
	}
	if cluster.HasIndex() {
		if _, err := h.store.Get(ctx, cluster.IndexRef, dir); err != nil {
			return nil, fmt.Errorf("fetch index: %w", err)
		}
	}
	if err := h.Verify(clusterID); err != nil {
		return nil, err
	}
	return nil, nil
}

// Verify checks that a cluster's download directory holds a primary file
// and, when the metadata names an index for the cluster, an index file.
// A cluster whose metadata has no index reference verifies on the primary
// alone; such clusters are only downloaded when require_index is false.
// It has the shape of a gate artifact check.
func (h *Handler) Verify(clusterID string) error {
	dir := h.layout.DownloadDir(clusterID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return services.Wrap(services.ErrPartialDownload, "download", "verify", dir, err)
	}
	var primary, index bool
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
		case strings.HasSuffix(name, indexSuffix):
			index = true
		case strings.HasSuffix(name, dataset.PrimarySuffix):
			primary = true
		}
	}
	needIndex := true
	if cluster, ok := h.lookup(clusterID); ok {
		needIndex = cluster.HasIndex()
	}
	switch {
	case !primary:
		return services.Wrap(services.ErrPartialDownload, "download", "verify", fmt.Sprintf("%s has no *%s file", dir, dataset.PrimarySuffix), nil)
	case needIndex && !index:
		return services.Wrap(services.ErrPartialDownload, "download", "verify", fmt.Sprintf("%s has no *%s file", dir, indexSuffix), nil)
	}
	return nil
}

// HealthCheck reports whether the remote store accepts credentials.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.login(ctx); err != nil {
		return stage.Unhealthy(stage.Download, err.Error())
	}
	return stage.Healthy(stage.Download)
}

func (h *Handler) login(ctx context.Context) error {
	h.loginOnce.Do(func() {
		h.loginErr = h.store.Login(ctx)
	})
	return h.loginErr
}

// lookup resolves a cluster, loading the metadata table on first use. A
// table that cannot be read leaves every cluster unknown.
func (h *Handler) lookup(clusterID string) (dataset.Cluster, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.metadata == nil {
		md, err := catalog.LoadMetadata(h.metadataPath)
		if err != nil {
			return dataset.Cluster{}, false
		}
		h.metadata = md
	}
	return h.metadata.Lookup(clusterID)
}
