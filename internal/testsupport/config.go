package testsupport

import (
	"path/filepath"
	"testing"

	"clustersync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The remote store is a local directory under the same temp root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DatasetDir = filepath.Join(base, "datasets")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.MetadataFile = filepath.Join(base, "metadata", "CellClusterTable.tsv")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Remote.Backend = config.BackendLocal
	cfgVal.Remote.LocalRoot = filepath.Join(base, "remote")
	cfgVal.Catalog.Parent = cfgVal.Remote.Project
	cfgVal.Biosamples.Output = filepath.Join(base, "config", "biosamples.tsv")
	cfgVal.Workers.PoolSize = 4

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithThreshold overrides the prediction threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Convert.Threshold = threshold
	}
}

// WithRequireIndex toggles the index requirement for downloads.
func WithRequireIndex(require bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Selection.RequireIndex = require
	}
}

// WithMinFragments overrides the retention floor.
func WithMinFragments(n int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Selection.MinFragments = n
	}
}

// WithPoolSize overrides the worker pool size.
func WithPoolSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.PoolSize = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
