package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustersync/internal/catalog"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

type flakyStore struct {
	remotestore.Store
	failPut bool
}

func (f *flakyStore) Put(ctx context.Context, localPath, parent, name string) (string, error) {
	if f.failPut {
		return "", services.Wrap(services.ErrRemote, "remote", "put", name, errors.New("connection reset"))
	}
	return f.Store.Put(ctx, localPath, parent, name)
}

func newLedger(t *testing.T, store remotestore.Store) (*catalog.Ledger, string) {
	t.Helper()
	state := t.TempDir()
	return catalog.NewLedger(catalog.LedgerOptions{
		Store:     store,
		Parent:    "predictions",
		Name:      "DatasetSummary.tsv",
		LockPath:  filepath.Join(state, "catalog.lock"),
		SpoolPath: filepath.Join(state, "catalog.pending.tsv"),
	}), state
}

func TestLedgerStartsEmptyAndPublishes(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	ledger, _ := newLedger(t, remotestore.NewLocal(remoteRoot))

	table, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.LedgerColumns(), table.Columns())
	assert.Zero(t, table.Len())

	err = ledger.Apply(ctx, []stage.Result{
		{ClusterID: "c1", Row: map[string]string{catalog.ColumnFolderID: "predictions/c1", "GeneList": "predictions/c1/GeneList.txt"}},
		{ClusterID: "c2", Row: map[string]string{catalog.ColumnFolderID: "predictions/c2"}},
	})
	require.NoError(t, err)

	published, err := catalog.ReadTableFile(filepath.Join(remoteRoot, "predictions", "DatasetSummary.tsv"))
	require.NoError(t, err)
	assert.Equal(t, 2, published.Len())
	folder, ok := catalog.FolderID(published, "c1")
	assert.True(t, ok)
	assert.Equal(t, "predictions/c1", folder)
}

func TestLedgerCreatesMissingStateDir(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	state := filepath.Join(t.TempDir(), "not", "yet", "created")
	ledger := catalog.NewLedger(catalog.LedgerOptions{
		Store:     remotestore.NewLocal(remoteRoot),
		Parent:    "predictions",
		Name:      "DatasetSummary.tsv",
		LockPath:  filepath.Join(state, "catalog.lock"),
		SpoolPath: filepath.Join(state, "catalog.pending.tsv"),
	})

	err := ledger.Apply(ctx, []stage.Result{
		{ClusterID: "c1", Row: map[string]string{catalog.ColumnFolderID: "predictions/c1"}},
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(state, "catalog.lock"))
	assert.FileExists(t, filepath.Join(remoteRoot, "predictions", "DatasetSummary.tsv"))
}

func TestLedgerRemoveKeepsOtherRowsByteIdentical(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	original := "CellClusterID\tCellClusterFolderID\tExtra\n" +
		"c1\tpredictions/c1\tkeep \"quoted\"\n" +
		"c2\tpredictions/c2\tx\n"
	require.NoError(t, os.MkdirAll(filepath.Join(remoteRoot, "predictions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(remoteRoot, "predictions", "DatasetSummary.tsv"), []byte(original), 0o644))

	ledger, _ := newLedger(t, remotestore.NewLocal(remoteRoot))
	require.NoError(t, ledger.Apply(ctx, []stage.Result{{ClusterID: "c2", Remove: true}}))

	table, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, `keep "quoted"`, table.Value(0, "Extra"))

	// Removing an absent row publishes nothing new.
	require.NoError(t, ledger.Apply(ctx, []stage.Result{{ClusterID: "c2", Remove: true}}))
}

func TestLedgerSpoolsOnPublishFailureAndFlushes(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	store := &flakyStore{Store: remotestore.NewLocal(remoteRoot), failPut: true}
	ledger, state := newLedger(t, store)

	err := ledger.Apply(ctx, []stage.Result{{ClusterID: "c1", Row: map[string]string{catalog.ColumnFolderID: "predictions/c1"}}})
	require.ErrorIs(t, err, services.ErrCatalogWrite)
	assert.True(t, ledger.Pending())
	assert.FileExists(t, filepath.Join(state, "catalog.pending.tsv"))

	// Reads see the spooled state.
	table, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	// Further mutations build on the spool.
	err = ledger.Apply(ctx, []stage.Result{{ClusterID: "c2", Row: map[string]string{catalog.ColumnFolderID: "predictions/c2"}}})
	require.ErrorIs(t, err, services.ErrCatalogWrite)

	store.failPut = false
	require.NoError(t, ledger.Flush(ctx))
	assert.False(t, ledger.Pending())

	data, err := os.ReadFile(filepath.Join(remoteRoot, "predictions", "DatasetSummary.tsv"))
	require.NoError(t, err)
	published, err := catalog.ReadTable(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, published.Keys(catalog.ColumnClusterID))
}

func TestLedgerRejectsCatalogWithoutKeyColumn(t *testing.T) {
	remoteRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(remoteRoot, "predictions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(remoteRoot, "predictions", "DatasetSummary.tsv"), []byte("Other\nx\n"), 0o644))
	ledger, _ := newLedger(t, remotestore.NewLocal(remoteRoot))
	_, err := ledger.Load(context.Background())
	assert.ErrorIs(t, err, services.ErrSchema)
}
