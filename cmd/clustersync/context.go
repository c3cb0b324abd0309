package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clustersync/internal/config"
	"clustersync/internal/logging"
	"clustersync/internal/workflow"
)

// overrideFlags are the per-stage settings that may be given on the command
// line instead of the configuration file.
type overrideFlags struct {
	threshold    float64
	thresholdSet bool
	resultsDir   string
	metadataFile string
	datasetDir   string
	outputFolder string
	logLevel     string
}

func (o *overrideFlags) apply(cfg *config.Config) {
	if o == nil {
		return
	}
	if o.thresholdSet {
		cfg.Convert.Threshold = o.threshold
	}
	if v := strings.TrimSpace(o.resultsDir); v != "" {
		cfg.Paths.ResultsDir = v
	}
	if v := strings.TrimSpace(o.metadataFile); v != "" {
		cfg.Paths.MetadataFile = v
	}
	if v := strings.TrimSpace(o.datasetDir); v != "" {
		cfg.Paths.DatasetDir = v
	}
	if v := strings.TrimSpace(o.outputFolder); v != "" {
		cfg.Convert.OutputFolder = v
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.Logging.Level = v
	}
}

type commandContext struct {
	configFlag *string
	overrides  *overrideFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, overrides *overrideFlags) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		overrides:  overrides,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.overrides.apply(cfg)
		if err := cfg.Finalize(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// withRuntime builds the stage runtime for the duration of fn.
func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(*workflow.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}
	rt, err := workflow.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
