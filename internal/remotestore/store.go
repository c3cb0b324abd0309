package remotestore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"clustersync/internal/config"
	"clustersync/internal/logging"
	"clustersync/internal/services"
)

// Store is the remote storage capability used by every stage.
type Store interface {
	// Login verifies credentials and that the store root is reachable.
	Login(ctx context.Context) error
	// Get downloads id into destDir and returns the local path.
	Get(ctx context.Context, id, destDir string) (string, error)
	// Put uploads localPath as name under parent and returns the new id.
	// An existing object with the same id is replaced.
	Put(ctx context.Context, localPath, parent, name string) (string, error)
	// CreateFolder ensures a folder named name exists under parent.
	CreateFolder(ctx context.Context, parent, name string) (string, error)
	// Delete removes an object or a folder with everything under it.
	Delete(ctx context.Context, id string) error
}

// Open builds the backend selected by remote.backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	logger = logging.NewComponentLogger(logger, "remotestore")
	switch cfg.Remote.Backend {
	case config.BackendLocal:
		return NewLocal(cfg.Remote.LocalRoot), nil
	case config.BackendS3:
		return NewS3(ctx, S3Options{
			Bucket:    cfg.Remote.Bucket,
			Region:    cfg.Remote.Region,
			Endpoint:  cfg.Remote.Endpoint,
			AccessKey: cfg.Remote.AccessKey,
			SecretKey: cfg.Remote.SecretKey,
			Logger:    logger,
		})
	case config.BackendMinio:
		return NewMinio(MinioOptions{
			Endpoint:  cfg.Remote.Endpoint,
			Bucket:    cfg.Remote.Bucket,
			Region:    cfg.Remote.Region,
			AccessKey: cfg.Remote.AccessKey,
			SecretKey: cfg.Remote.SecretKey,
			UseSSL:    cfg.Remote.UseSSL,
			Logger:    logger,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "remote", "open", fmt.Sprintf("unsupported backend %q", cfg.Remote.Backend), nil)
	}
}

// JoinID returns the id of name inside parent.
func JoinID(parent, name string) string {
	parent = strings.Trim(parent, "/")
	name = strings.Trim(name, "/")
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// BaseName returns the final element of an id.
func BaseName(id string) string {
	return path.Base(strings.Trim(id, "/"))
}

func validateID(op, id string) error {
	cleaned := strings.Trim(id, "/")
	if cleaned == "" {
		return services.Wrap(services.ErrValidation, "remote", op, "empty id", nil)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == "" || part == "." || part == ".." {
			return services.Wrap(services.ErrValidation, "remote", op, fmt.Sprintf("invalid id %q", id), nil)
		}
	}
	return nil
}

func absent(op, id string, err error) error {
	return services.Wrap(services.ErrRemoteConflict, "remote", op, id, err)
}
