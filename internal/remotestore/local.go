package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"clustersync/internal/fileutil"
	"clustersync/internal/services"
)

// Local stores objects as files below a root directory.
type Local struct {
	root string
}

// NewLocal returns a store rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) path(id string) string {
	return filepath.Join(l.root, filepath.FromSlash(id))
}

func (l *Local) Login(context.Context) error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return services.Wrap(services.ErrRemote, "remote", "login", l.root, err)
	}
	return nil
}

func (l *Local) Get(ctx context.Context, id, destDir string) (string, error) {
	if err := validateID("get", id); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := l.path(id)
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", absent("get", id, err)
	}
	if err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "get", id, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "remote", "get", fmt.Sprintf("%s is a folder", id), nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dst := filepath.Join(destDir, BaseName(id))
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "get", id, err)
	}
	return dst, nil
}

func (l *Local) Put(ctx context.Context, localPath, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("put", id); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := l.path(id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "put", id, err)
	}
	if err := fileutil.CopyFileVerified(localPath, dst); err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "put", id, err)
	}
	return id, nil
}

func (l *Local) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("create folder", id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.path(id), 0o755); err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "create folder", id, err)
	}
	return id, nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	if err := validateID("delete", id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := l.path(id)
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		return absent("delete", id, err)
	}
	if err := os.RemoveAll(target); err != nil {
		return services.Wrap(services.ErrRemote, "remote", "delete", id, err)
	}
	return nil
}
