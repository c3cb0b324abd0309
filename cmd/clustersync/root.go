package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	overrides := &overrideFlags{}

	ctx := newCommandContext(&configFlag, overrides)

	rootCmd := &cobra.Command{
		Use:           "clustersync",
		Short:         "Synchronize cell cluster datasets with remote storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			overrides.thresholdSet = cmd.Flags().Changed("threshold")
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.Float64Var(&overrides.threshold, "threshold", 0, "Score threshold of the thresholded predictions file")
	flags.StringVar(&overrides.resultsDir, "results-dir", "", "Root of the per-cluster analysis results")
	flags.StringVar(&overrides.metadataFile, "metadata-file", "", "Cell cluster metadata table")
	flags.StringVar(&overrides.datasetDir, "dataset-dir", "", "Root of the per-cluster downloads")
	flags.StringVar(&overrides.outputFolder, "output-folder", "", "Name of the converted output folder inside each cluster")
	flags.StringVar(&overrides.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	for _, cmd := range newStageCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newQCCommand(ctx))
	rootCmd.AddCommand(newBiosamplesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
