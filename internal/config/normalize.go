package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConvert()
	c.normalizeSelection()
	if c.Workers.PoolSize <= 0 {
		c.Workers.PoolSize = defaultPoolSize
	}
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeProvenance()
	if err := c.normalizeBiosamples(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.MetadataFile, err = expandPath(c.Paths.MetadataFile); err != nil {
		return fmt.Errorf("paths.metadata_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConvert() {
	c.Convert.OutputFolder = strings.Trim(strings.TrimSpace(c.Convert.OutputFolder), "/")
	if c.Convert.OutputFolder == "" {
		c.Convert.OutputFolder = defaultOutputFolder
	}
}

func (c *Config) normalizeSelection() {
	c.Selection.Species = strings.TrimSpace(c.Selection.Species)
	if c.Selection.Species == "" {
		c.Selection.Species = defaultSpecies
	}
}

func (c *Config) normalizeRemote() error {
	c.Remote.Backend = strings.ToLower(strings.TrimSpace(c.Remote.Backend))
	if c.Remote.Backend == "" {
		c.Remote.Backend = defaultBackend
	}
	c.Remote.Bucket = strings.TrimSpace(c.Remote.Bucket)
	c.Remote.Endpoint = strings.TrimSpace(c.Remote.Endpoint)
	c.Remote.Region = strings.TrimSpace(c.Remote.Region)
	if c.Remote.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
			c.Remote.Region = strings.TrimSpace(value)
		} else {
			c.Remote.Region = defaultRegion
		}
	}
	c.Remote.AccessKey = strings.TrimSpace(c.Remote.AccessKey)
	if c.Remote.AccessKey == "" {
		if value, ok := os.LookupEnv("CLUSTERSYNC_ACCESS_KEY"); ok {
			c.Remote.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Remote.SecretKey = strings.TrimSpace(c.Remote.SecretKey)
	if c.Remote.SecretKey == "" {
		if value, ok := os.LookupEnv("CLUSTERSYNC_SECRET_KEY"); ok {
			c.Remote.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Remote.Project = strings.Trim(strings.TrimSpace(c.Remote.Project), "/")
	if c.Remote.Project == "" {
		c.Remote.Project = defaultProject
	}
	if c.Remote.Backend == BackendLocal {
		if strings.TrimSpace(c.Remote.LocalRoot) == "" {
			c.Remote.LocalRoot = defaultLocalRoot
		}
		var err error
		if c.Remote.LocalRoot, err = expandPath(c.Remote.LocalRoot); err != nil {
			return fmt.Errorf("remote.local_root: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Parent = strings.Trim(strings.TrimSpace(c.Catalog.Parent), "/")
	if c.Catalog.Parent == "" {
		c.Catalog.Parent = c.Remote.Project
	}
	c.Catalog.Name = strings.TrimSpace(c.Catalog.Name)
	if c.Catalog.Name == "" {
		c.Catalog.Name = defaultCatalogName
	}
}

func (c *Config) normalizeProvenance() {
	c.Provenance.CodeURL = strings.TrimSpace(c.Provenance.CodeURL)
	if c.Provenance.CodeURL == "" {
		c.Provenance.CodeURL = defaultCodeURL
	}
	c.Provenance.Contact = strings.TrimSpace(c.Provenance.Contact)
	if c.Provenance.Contact == "" {
		c.Provenance.Contact = defaultContact
	}
	c.Provenance.Genome = strings.TrimSpace(c.Provenance.Genome)
	if c.Provenance.Genome == "" {
		c.Provenance.Genome = defaultGenome
	}
}

func (c *Config) normalizeBiosamples() error {
	if strings.TrimSpace(c.Biosamples.Output) == "" {
		c.Biosamples.Output = defaultBiosampleFile
	}
	var err error
	if c.Biosamples.Output, err = expandPath(c.Biosamples.Output); err != nil {
		return fmt.Errorf("biosamples.output: %w", err)
	}
	c.Biosamples.HiCDir = strings.TrimSpace(c.Biosamples.HiCDir)
	c.Biosamples.HiCType = strings.TrimSpace(c.Biosamples.HiCType)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
