package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clustersync/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDataset := filepath.Join(tempHome, "clustersync", "datasets")
	if cfg.Paths.DatasetDir != wantDataset {
		t.Fatalf("unexpected dataset dir: got %q want %q", cfg.Paths.DatasetDir, wantDataset)
	}
	if cfg.Workers.PoolSize != 20 {
		t.Fatalf("expected default pool size 20, got %d", cfg.Workers.PoolSize)
	}
	if cfg.Selection.RequireIndex {
		t.Fatal("expected require_index disabled by default")
	}
	if cfg.Selection.Species != "Human" {
		t.Fatalf("unexpected species: %q", cfg.Selection.Species)
	}
	if cfg.Catalog.Parent != cfg.Remote.Project {
		t.Fatalf("expected catalog parent to default to project, got %q", cfg.Catalog.Parent)
	}
	if cfg.Convert.Threshold != 0.5 {
		t.Fatalf("unexpected threshold: %v", cfg.Convert.Threshold)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DatasetDir, cfg.Paths.ResultsDir, cfg.Paths.StateDir, cfg.Remote.LocalRoot} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clustersync.toml")

	type payload struct {
		Paths struct {
			ResultsDir string `toml:"results_dir"`
		} `toml:"paths"`
		Workers struct {
			PoolSize int `toml:"pool_size"`
		} `toml:"workers"`
		Selection struct {
			RequireIndex bool `toml:"require_index"`
		} `toml:"selection"`
		Remote struct {
			Backend string `toml:"backend"`
			Bucket  string `toml:"bucket"`
		} `toml:"remote"`
	}
	custom := payload{}
	custom.Paths.ResultsDir = filepath.Join(tempDir, "results")
	custom.Workers.PoolSize = 4
	custom.Selection.RequireIndex = true
	custom.Remote.Backend = "S3"
	custom.Remote.Bucket = "igvf-predictions"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.ResultsDir != custom.Paths.ResultsDir {
		t.Fatalf("unexpected results dir: %q", cfg.Paths.ResultsDir)
	}
	if cfg.Workers.PoolSize != 4 {
		t.Fatalf("unexpected pool size: %d", cfg.Workers.PoolSize)
	}
	if !cfg.Selection.RequireIndex {
		t.Fatal("expected require_index from file")
	}
	if cfg.Remote.Backend != config.BackendS3 {
		t.Fatalf("expected backend normalized to s3, got %q", cfg.Remote.Backend)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.Backend = "ftp"
	if err := cfg.Finalize(); err == nil || !strings.Contains(err.Error(), "remote.backend") {
		t.Fatalf("expected backend validation error, got %v", err)
	}
}

func TestValidateMinioRequiresCredentials(t *testing.T) {
	t.Setenv("CLUSTERSYNC_ACCESS_KEY", "")
	t.Setenv("CLUSTERSYNC_SECRET_KEY", "")
	cfg := config.Default()
	cfg.Remote.Backend = config.BackendMinio
	cfg.Remote.Bucket = "bucket"
	cfg.Remote.Endpoint = "localhost:9000"
	if err := cfg.Finalize(); err == nil || !strings.Contains(err.Error(), "access_key") {
		t.Fatalf("expected credential error, got %v", err)
	}

	t.Setenv("CLUSTERSYNC_ACCESS_KEY", "minio")
	t.Setenv("CLUSTERSYNC_SECRET_KEY", "minio123")
	cfg = config.Default()
	cfg.Remote.Backend = config.BackendMinio
	cfg.Remote.Bucket = "bucket"
	cfg.Remote.Endpoint = "localhost:9000"
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("expected env credentials to satisfy validation: %v", err)
	}
}

func TestValidateThresholdRange(t *testing.T) {
	cfg := config.Default()
	cfg.Convert.Threshold = 1.5
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected threshold validation error")
	}
}

func TestNormalizeFillsPoolSize(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.PoolSize = 0
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Workers.PoolSize != 20 {
		t.Fatalf("expected pool size reset to default, got %d", cfg.Workers.PoolSize)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Catalog.Name != "DatasetSummary.tsv" {
		t.Fatalf("unexpected catalog name %q", cfg.Catalog.Name)
	}
}
