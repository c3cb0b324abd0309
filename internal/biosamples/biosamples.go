package biosamples

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/dataset"
)

// Columns of the biosample table. The first block matches the pipeline's
// template; the HiC tuning columns follow.
const (
	ColumnBiosample      = "biosample"
	ColumnDHS            = "DHS"
	ColumnATAC           = "ATAC"
	ColumnH3K27ac        = "H3K27ac"
	ColumnDefaultFeature = "default_accessibility_feature"
	ColumnHiCFile        = "HiC_file"
	ColumnHiCType        = "HiC_type"
	ColumnHiCResolution  = "HiC_resolution"
	ColumnAltTSS         = "alt_TSS"
	ColumnAltGenes       = "alt_genes"
	ColumnHiCDir         = "HiC_dir"
	ColumnHiCGamma       = "HiC_gamma"
	ColumnHiCScale       = "HiC_scale"
)

const accessibilityFeature = "ATAC"

// Columns returns the header of a biosample table in output order.
func Columns() []string {
	return []string{
		ColumnBiosample, ColumnDHS, ColumnATAC, ColumnH3K27ac, ColumnDefaultFeature,
		ColumnHiCFile, ColumnHiCType, ColumnHiCResolution, ColumnAltTSS, ColumnAltGenes,
		ColumnHiCDir, ColumnHiCGamma, ColumnHiCScale,
	}
}

// Build assembles one row per downloaded cluster. A cluster holding several
// primary files keeps the last one in name order.
func Build(layout dataset.Layout, hic config.Biosamples) (*catalog.Table, error) {
	files, err := layout.DownloadedPrimaries()
	if err != nil {
		return nil, err
	}
	t := catalog.NewTable(Columns()...)
	for _, f := range files {
		row := map[string]string{
			ColumnBiosample:      f.ClusterID,
			ColumnATAC:           f.Path,
			ColumnDefaultFeature: accessibilityFeature,
			ColumnHiCDir:         hic.HiCDir,
			ColumnHiCType:        hic.HiCType,
			ColumnHiCGamma:       strconv.FormatFloat(hic.HiCGamma, 'g', -1, 64),
			ColumnHiCScale:       strconv.FormatFloat(hic.HiCScale, 'g', -1, 64),
			ColumnHiCResolution:  strconv.Itoa(hic.HiCResolution),
		}
		if err := t.Upsert(ColumnBiosample, row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Write builds the table from cfg and writes it to the configured output
// path. It returns the number of rows written.
func Write(cfg *config.Config) (int, error) {
	t, err := Build(dataset.NewLayout(cfg), cfg.Biosamples)
	if err != nil {
		return 0, err
	}
	path := cfg.Biosamples.Output
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create biosample dir: %w", err)
	}
	if err := t.WriteFile(path); err != nil {
		return 0, fmt.Errorf("write biosample table: %w", err)
	}
	return t.Len(), nil
}
