package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clustersync/internal/config"
)

// CompletedMarker is the zero-byte sentinel written as the last action of a
// successful stage run.
const CompletedMarker = ".completed"

// ReceiptFile records the remote ids produced by an upload.
const ReceiptFile = "receipt.tsv"

const uploadFolder = "upload"

// Layout resolves per-cluster directories under the configured roots.
type Layout struct {
	DatasetDir   string
	ResultsDir   string
	OutputFolder string
	Threshold    float64
}

// NewLayout builds a Layout from configuration.
func NewLayout(cfg *config.Config) Layout {
	return Layout{
		DatasetDir:   cfg.Paths.DatasetDir,
		ResultsDir:   cfg.Paths.ResultsDir,
		OutputFolder: cfg.Convert.OutputFolder,
		Threshold:    cfg.Convert.Threshold,
	}
}

// DownloadDir holds the downloaded primary and index objects of a cluster.
func (l Layout) DownloadDir(clusterID string) string {
	return filepath.Join(l.DatasetDir, clusterID)
}

// ClusterResultsDir is the analysis pipeline output directory of a cluster.
func (l Layout) ClusterResultsDir(clusterID string) string {
	return filepath.Join(l.ResultsDir, clusterID)
}

// InputPath locates a raw artifact inside the cluster results directory.
func (l Layout) InputPath(clusterID string, a Artifact) string {
	return filepath.Join(l.ClusterResultsDir(clusterID), filepath.FromSlash(a.InputPath(l.Threshold)))
}

// OutputDir holds the converted artifacts of a cluster.
func (l Layout) OutputDir(clusterID string) string {
	return filepath.Join(l.ClusterResultsDir(clusterID), l.OutputFolder)
}

// OutputPath locates a converted artifact.
func (l Layout) OutputPath(clusterID string, a Artifact) string {
	return filepath.Join(l.OutputDir(clusterID), a.FileName(l.Threshold))
}

// UploadDir holds the upload receipt and marker of a cluster.
func (l Layout) UploadDir(clusterID string) string {
	return filepath.Join(l.OutputDir(clusterID), uploadFolder)
}

// ReceiptPath locates the upload receipt of a cluster.
func (l Layout) ReceiptPath(clusterID string) string {
	return filepath.Join(l.UploadDir(clusterID), ReceiptFile)
}

// ClustersWithPredictions lists clusters whose results directory holds the
// unthresholded predictions file, the signal that analysis finished.
func (l Layout) ClustersWithPredictions() ([]string, error) {
	return l.scan(l.ResultsDir, func(id string) string {
		return l.InputPath(id, Predictions)
	})
}

// ClustersWithOutput lists clusters that have a converted output directory.
func (l Layout) ClustersWithOutput() ([]string, error) {
	return l.scan(l.ResultsDir, l.OutputDir)
}

// DownloadedClusters lists clusters that have a download directory.
func (l Layout) DownloadedClusters() ([]string, error) {
	return l.scan(l.DatasetDir, l.DownloadDir)
}

func (l Layout) scan(root string, pathFor func(id string) string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || ValidateID(entry.Name()) != nil {
			continue
		}
		if _, err := os.Stat(pathFor(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PrimaryFile is a downloaded primary object of one cluster.
type PrimaryFile struct {
	ClusterID string
	Path      string
}

// IndexPath is where the tabix index of the primary is expected.
func (p PrimaryFile) IndexPath() string {
	return p.Path + IndexSuffix
}

// Primary and index suffixes of downloaded objects.
const (
	PrimarySuffix = ".gz"
	IndexSuffix   = ".tbi"
)

// DownloadedPrimaries lists the primary files of every downloaded cluster,
// ordered by cluster id then file name. Paths are absolute.
func (l Layout) DownloadedPrimaries() ([]PrimaryFile, error) {
	ids, err := l.DownloadedClusters()
	if err != nil {
		return nil, err
	}
	var files []PrimaryFile
	for _, id := range ids {
		dir, err := filepath.Abs(l.DownloadDir(id))
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), PrimarySuffix) {
				continue
			}
			files = append(files, PrimaryFile{ClusterID: id, Path: filepath.Join(dir, entry.Name())})
		}
	}
	return files, nil
}
