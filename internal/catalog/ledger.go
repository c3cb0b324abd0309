package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"clustersync/internal/dataset"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// Ledger columns beyond the per-artifact ones.
const (
	ColumnFolderID = "CellClusterFolderID"
)

const lockRetryDelay = 200 * time.Millisecond

// LedgerColumns is the header of a freshly created catalog.
func LedgerColumns() []string {
	cols := []string{ColumnClusterID, ColumnFolderID}
	for _, a := range dataset.Artifacts() {
		cols = append(cols, a.CatalogColumn())
	}
	return cols
}

// LedgerOptions locates the published catalog and its local state.
type LedgerOptions struct {
	Store  remotestore.Store
	Parent string
	Name   string
	// LockPath serializes writers across processes.
	LockPath string
	// SpoolPath holds a table whose publication failed.
	SpoolPath string
	// WorkDir receives downloaded and staged copies. Defaults to the spool
	// directory.
	WorkDir string
	Logger  *slog.Logger
}

// Ledger is the single writer of the published dataset catalog. Every
// mutation loads the current table, applies the change, and republishes the
// whole file under a fixed name.
type Ledger struct {
	opts   LedgerOptions
	mu     sync.Mutex
	lock   *flock.Flock
	logger *slog.Logger
}

// NewLedger constructs a ledger.
func NewLedger(opts LedgerOptions) *Ledger {
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Dir(opts.SpoolPath)
	}
	return &Ledger{
		opts:   opts,
		lock:   flock.New(opts.LockPath),
		logger: logging.NewComponentLogger(opts.Logger, "catalog"),
	}
}

// ID is the remote id of the published catalog.
func (l *Ledger) ID() string {
	return remotestore.JoinID(l.opts.Parent, l.opts.Name)
}

// Load returns the freshest catalog: a pending spool if one exists, else the
// published table, else an empty table with the ledger columns.
func (l *Ledger) Load(ctx context.Context) (*Table, error) {
	t, _, err := l.load(ctx)
	return t, err
}

// Pending reports whether a spooled table is waiting to be published.
func (l *Ledger) Pending() bool {
	_, err := os.Stat(l.opts.SpoolPath)
	return err == nil
}

// FolderID returns the remote folder recorded for a cluster.
func FolderID(t *Table, clusterID string) (string, bool) {
	i := t.Find(ColumnClusterID, clusterID)
	if i < 0 {
		return "", false
	}
	id := t.Value(i, ColumnFolderID)
	return id, id != ""
}

// Apply commits stage results: rows are upserted by cluster id and Remove
// results drop the cluster's row.
func (l *Ledger) Apply(ctx context.Context, results []stage.Result) error {
	if len(results) == 0 {
		return nil
	}
	return l.Update(ctx, func(t *Table) (bool, error) {
		changed := false
		remove := make(map[string]struct{})
		for _, r := range results {
			if r.Remove {
				remove[r.ClusterID] = struct{}{}
				continue
			}
			row := make(map[string]string, len(r.Row)+1)
			for k, v := range r.Row {
				row[k] = v
			}
			row[ColumnClusterID] = r.ClusterID
			if err := t.Upsert(ColumnClusterID, row); err != nil {
				return false, err
			}
			changed = true
		}
		if len(remove) > 0 {
			n := t.DeleteWhere(func(get func(string) string) bool {
				_, ok := remove[get(ColumnClusterID)]
				return ok
			})
			changed = changed || n > 0
		}
		return changed, nil
	})
}

// Flush publishes a pending spool, if any.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.Update(ctx, func(*Table) (bool, error) { return false, nil })
}

// Update runs a read-modify-publish cycle under the catalog lock. mutate
// reports whether it changed the table. The table is published when it
// changed or when an earlier publish is still pending. A failed publish spools
// the table locally and returns an error matching services.ErrCatalogWrite.
func (l *Ledger) Update(ctx context.Context, mutate func(*Table) (bool, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.opts.LockPath), 0o755); err != nil {
		return fmt.Errorf("create catalog lock dir: %w", err)
	}
	locked, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire catalog lock: %s held by another process", l.opts.LockPath)
	}
	defer func() {
		if err := l.lock.Unlock(); err != nil {
			l.logger.Warn("catalog lock release failed", logging.Error(err))
		}
	}()

	t, spooled, err := l.load(ctx)
	if err != nil {
		return err
	}
	changed, err := mutate(t)
	if err != nil {
		return err
	}
	if !changed && !spooled {
		return nil
	}
	return l.publish(ctx, t)
}

func (l *Ledger) load(ctx context.Context) (*Table, bool, error) {
	if t, err := ReadTableFile(l.opts.SpoolPath); err == nil {
		l.logger.Info("using pending catalog spool", logging.String("path", l.opts.SpoolPath))
		return t, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read catalog spool: %w", err)
	}

	if err := os.MkdirAll(l.opts.WorkDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create catalog work dir: %w", err)
	}
	dir, err := os.MkdirTemp(l.opts.WorkDir, "catalog-fetch-*")
	if err != nil {
		return nil, false, fmt.Errorf("create catalog fetch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path, err := l.opts.Store.Get(ctx, l.ID(), dir)
	if errors.Is(err, services.ErrRemoteConflict) {
		l.logger.Info("no published catalog, starting empty", logging.String("id", l.ID()))
		return NewTable(LedgerColumns()...), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetch catalog: %w", err)
	}
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, false, err
	}
	if !t.HasColumn(ColumnClusterID) {
		return nil, false, &services.SchemaError{Kind: "catalog", Column: ColumnClusterID, Path: l.ID(), Detail: "missing column"}
	}
	return t, false, nil
}

func (l *Ledger) publish(ctx context.Context, t *Table) error {
	staged := filepath.Join(l.opts.WorkDir, l.opts.Name)
	if err := os.MkdirAll(l.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create catalog work dir: %w", err)
	}
	if err := t.WriteFile(staged); err != nil {
		return fmt.Errorf("stage catalog: %w", err)
	}
	defer os.Remove(staged)

	id, putErr := l.opts.Store.Put(ctx, staged, l.opts.Parent, l.opts.Name)
	if putErr == nil {
		if err := os.Remove(l.opts.SpoolPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("catalog spool cleanup failed", logging.Error(err))
		}
		l.logger.Info("catalog published", logging.String("id", id), logging.Int("rows", t.Len()))
		return nil
	}

	if err := t.WriteFile(l.opts.SpoolPath); err != nil {
		return services.Wrap(services.ErrCatalogWrite, "catalog", "spool", l.opts.SpoolPath, errors.Join(putErr, err))
	}
	logging.WarnWithContext(l.logger, "catalog publish failed; table spooled", "catalog_deferred",
		logging.String("spool", l.opts.SpoolPath),
		logging.Error(putErr),
		logging.String(logging.FieldErrorHint, "run 'clustersync catalog publish' once the remote store is reachable"),
		logging.String(logging.FieldImpact, "published catalog is stale until the spool is flushed"),
	)
	return services.Wrap(services.ErrCatalogWrite, "catalog", "publish", l.ID(), putErr)
}
