package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the local directory layout shared by every stage.
type Paths struct {
	DatasetDir   string `toml:"dataset_dir"`
	ResultsDir   string `toml:"results_dir"`
	MetadataFile string `toml:"metadata_file"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Convert contains settings for the format conversion stage.
type Convert struct {
	OutputFolder string  `toml:"output_folder"`
	Threshold    float64 `toml:"threshold"`
}

// Selection decides which clusters are eligible for download and which are
// scheduled for deletion.
type Selection struct {
	Species      string `toml:"species"`
	MinFragments int64  `toml:"min_fragments"`
	// RequireIndex rejects clusters whose metadata has no index reference.
	RequireIndex bool `toml:"require_index"`
}

// Workers bounds per-stage parallelism.
type Workers struct {
	PoolSize int `toml:"pool_size"`
}

// Remote contains the object store connection.
type Remote struct {
	Backend   string `toml:"backend"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	LocalRoot string `toml:"local_root"`
	// Project is the folder every cluster folder is created under.
	Project string `toml:"project"`
}

// Catalog locates the published dataset summary table.
type Catalog struct {
	Parent string `toml:"parent"`
	Name   string `toml:"name"`
}

// Provenance is stamped into every converted artifact header.
type Provenance struct {
	CodeURL string `toml:"code_url"`
	Contact string `toml:"contact"`
	Genome  string `toml:"genome"`
}

// Biosamples contains the contact-map settings written into the biosample
// table consumed by the analysis pipeline.
type Biosamples struct {
	Output        string  `toml:"output"`
	HiCDir        string  `toml:"hic_dir"`
	HiCType       string  `toml:"hic_type"`
	HiCGamma      float64 `toml:"hic_gamma"`
	HiCScale      float64 `toml:"hic_scale"`
	HiCResolution int     `toml:"hic_resolution"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clustersync.
//
// Configuration sections by subsystem:
//   - Paths: local dataset, results and state directories
//   - Convert: output folder and prediction threshold
//   - Selection: species, fragment floor and index policy
//   - Workers: stage pool size
//   - Remote: object store backend and credentials
//   - Catalog: published summary table location
//   - Provenance: header fields for converted files
//   - Biosamples: contact-map settings for the biosample table
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Convert    Convert    `toml:"convert"`
	Selection  Selection  `toml:"selection"`
	Workers    Workers    `toml:"workers"`
	Remote     Remote     `toml:"remote"`
	Catalog    Catalog    `toml:"catalog"`
	Provenance Provenance `toml:"provenance"`
	Biosamples Biosamples `toml:"biosamples"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize re-runs normalization and validation after callers override fields
// (for example from command-line flags).
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clustersync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories every stage writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DatasetDir, c.Paths.ResultsDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Remote.Backend == BackendLocal {
		if err := os.MkdirAll(c.Remote.LocalRoot, 0o755); err != nil {
			return fmt.Errorf("create remote root %q: %w", c.Remote.LocalRoot, err)
		}
	}
	return nil
}

// HistoryPath returns the stage history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// CatalogLockPath returns the file lock guarding catalog republication.
func (c *Config) CatalogLockPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.lock")
}

// CatalogSpoolPath returns where an unpublished catalog is held until the
// next successful publish.
func (c *Config) CatalogSpoolPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.pending.tsv")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
