package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"clustersync/internal/catalog"
	"clustersync/internal/dataset"
	"clustersync/internal/stage"
)

func writeReceipt(path string, result stage.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}
	t := catalog.NewTable(catalog.LedgerColumns()...)
	row := map[string]string{catalog.ColumnClusterID: result.ClusterID}
	for k, v := range result.Row {
		row[k] = v
	}
	if err := t.Upsert(catalog.ColumnClusterID, row); err != nil {
		return err
	}
	if err := t.WriteFile(path); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// ReadReceipt returns the catalog row recorded by the last upload of a
// cluster. ok is false when the cluster has no receipt.
func ReadReceipt(layout dataset.Layout, clusterID string) (stage.Result, bool, error) {
	t, err := catalog.ReadTableFile(layout.ReceiptPath(clusterID))
	if errors.Is(err, fs.ErrNotExist) {
		return stage.Result{}, false, nil
	}
	if err != nil {
		return stage.Result{}, false, err
	}
	i := t.Find(catalog.ColumnClusterID, clusterID)
	if i < 0 {
		return stage.Result{}, false, fmt.Errorf("receipt %s does not describe %s", layout.ReceiptPath(clusterID), clusterID)
	}
	row := t.Record(i)
	delete(row, catalog.ColumnClusterID)
	return stage.Result{ClusterID: clusterID, Row: row}, true, nil
}

// Receipts collects the receipts of every cluster with converted output, in
// cluster order. They rebuild catalog rows lost to an unpublished catalog.
func Receipts(layout dataset.Layout) ([]stage.Result, error) {
	ids, err := layout.ClustersWithOutput()
	if err != nil {
		return nil, err
	}
	var out []stage.Result
	for _, id := range ids {
		r, ok, err := ReadReceipt(layout, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
