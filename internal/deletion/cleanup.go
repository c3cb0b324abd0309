package deletion

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clustersync/internal/logging"
)

// CleanupResult contains the outcome of removing a cluster's local
// directories.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Err joins the collected errors, or returns nil.
func (r CleanupResult) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e.Error)
	}
	return errors.Join(errs...)
}

// RemoveClusterDirs removes <root>/<clusterID> under every root. Missing
// directories are not errors.
func RemoveClusterDirs(roots []string, clusterID string, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		dirPath := filepath.Join(root, clusterID)
		if _, err := os.Lstat(dirPath); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove cluster directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "cluster_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check dataset_dir and results_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed; cluster stays in the catalog"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed cluster directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "cluster_cleanup"),
			)
		}
	}
	return result
}
