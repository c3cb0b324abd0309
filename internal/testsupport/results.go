package testsupport

import (
	"path/filepath"
	"testing"

	"clustersync/internal/config"
	"clustersync/internal/dataset"
)

// Sample rows for each raw artifact. They carry the columns the analysis
// pipeline emits plus one extra column to exercise ordering.
var (
	PeakRows = [][]string{
		{"chr1", "100", "600", "peak1", "50", ".", "4.1", "7.2", "5.0", "250"},
		{"chr2", "900", "1400", "peak2", "30", ".", "2.0", "3.3", "1.9", "120"},
	}
	EnhancerHeader = []string{"chr", "start", "end", "name", "class", "activity_base"}
	EnhancerRows   = [][]string{
		{"chr1", "100", "600", "chr1:100-600", "intergenic", "3.2"},
	}
	GeneHeader = []string{"chr", "start", "end", "symbol", "Ensembl_ID", "tss", "strand"}
	GeneRows   = [][]string{
		{"chr1", "1000", "5000", "GENE1", "ENSG0001", "1000", "+"},
	}
	PredictionHeader = []string{"chr", "start", "end", "name", "TargetGene", "TargetGeneEnsembl_ID", "TargetGeneTSS", "ABC.Score", "ENCODE-E2G.Score"}
	PredictionRows   = [][]string{
		{"chr1", "100", "600", "chr1:100-600", "GENE1", "ENSG0001", "1000", "0.02", "0.71"},
		{"chr1", "700", "900", "chr1:700-900", "GENE1", "ENSG0001", "1000", "0.01", "0.33"},
	}
)

// WriteResults writes a complete set of raw artifacts for clusterID under the
// configured results root.
func WriteResults(t testing.TB, cfg *config.Config, clusterID string) {
	t.Helper()

	layout := dataset.NewLayout(cfg)
	WriteTSV(t, layout.InputPath(clusterID, dataset.Peaks), nil, PeakRows...)
	WriteTSV(t, layout.InputPath(clusterID, dataset.EnhancerList), EnhancerHeader, EnhancerRows...)
	WriteTSV(t, layout.InputPath(clusterID, dataset.GeneList), GeneHeader, GeneRows...)
	WriteTSV(t, layout.InputPath(clusterID, dataset.Predictions), PredictionHeader, PredictionRows...)
	WriteTSV(t, layout.InputPath(clusterID, dataset.PredictionsThresholded), PredictionHeader, PredictionRows[0])
}

// WriteMetadata writes the cluster metadata table with the given rows, each
// holding CellClusterID, Species, primary ref, index ref and NumFragments.
func WriteMetadata(t testing.TB, cfg *config.Config, rows ...[]string) {
	t.Helper()

	header := []string{"CellClusterID", "Species", "ATACtagAlignSorted", "ATACtagAlignSortedIndex", "NumFragments"}
	WriteTSV(t, cfg.Paths.MetadataFile, header, rows...)
}

// WriteRemote places content at a slash-separated id in the local remote
// store root.
func WriteRemote(t testing.TB, cfg *config.Config, id, content string) {
	t.Helper()

	WriteFile(t, filepath.Join(cfg.Remote.LocalRoot, filepath.FromSlash(id)), content)
}
