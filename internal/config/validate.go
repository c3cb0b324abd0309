package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if c.Workers.PoolSize <= 0 {
		return errors.New("workers.pool_size must be positive")
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if strings.Contains(c.Catalog.Name, "/") {
		return fmt.Errorf("catalog.name %q must not contain a path separator", c.Catalog.Name)
	}
	if c.Biosamples.HiCResolution <= 0 {
		return errors.New("biosamples.hic_resolution must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	for key, value := range map[string]string{
		"paths.dataset_dir":   c.Paths.DatasetDir,
		"paths.results_dir":   c.Paths.ResultsDir,
		"paths.metadata_file": c.Paths.MetadataFile,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateConvert() error {
	if strings.Contains(c.Convert.OutputFolder, "..") {
		return fmt.Errorf("convert.output_folder %q must stay inside the cluster results directory", c.Convert.OutputFolder)
	}
	if c.Convert.Threshold < 0 || c.Convert.Threshold > 1 {
		return errors.New("convert.threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateSelection() error {
	if c.Selection.MinFragments < 0 {
		return errors.New("selection.min_fragments must be >= 0")
	}
	return nil
}

func (c *Config) validateRemote() error {
	switch c.Remote.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Remote.LocalRoot) == "" {
			return errors.New("remote.local_root must be set when remote.backend is local")
		}
	case BackendS3:
		if c.Remote.Bucket == "" {
			return errors.New("remote.bucket must be set when remote.backend is s3")
		}
	case BackendMinio:
		if c.Remote.Bucket == "" {
			return errors.New("remote.bucket must be set when remote.backend is minio")
		}
		if c.Remote.Endpoint == "" {
			return errors.New("remote.endpoint must be set when remote.backend is minio")
		}
		if c.Remote.AccessKey == "" || c.Remote.SecretKey == "" {
			return errors.New("remote.access_key and remote.secret_key must be set when remote.backend is minio (or set CLUSTERSYNC_ACCESS_KEY/CLUSTERSYNC_SECRET_KEY)")
		}
	default:
		return fmt.Errorf("remote.backend %q is not supported (use s3, minio, or local)", c.Remote.Backend)
	}
	return nil
}
