package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clustersync/internal/biosamples"
	"clustersync/internal/dataset"
	"clustersync/internal/qc"
)

func newQCCommand(ctx *commandContext) *cobra.Command {
	var (
		lines      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "qc",
		Short: "Check downloaded fragment files for sorting and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := qc.Inspect(dataset.NewLayout(cfg), lines)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Inspected %d files\n", len(report.Files))
			for _, path := range report.Unsorted {
				fmt.Fprintln(out, renderStatusLine("Not sorted", statusWarn, path, colorize))
			}
			for _, path := range report.Unindexed {
				fmt.Fprintln(out, renderStatusLine("No index", statusWarn, path, colorize))
			}
			for _, msg := range report.Errors {
				fmt.Fprintln(out, renderStatusLine("Unreadable", statusError, msg, colorize))
			}
			if report.OK() {
				fmt.Fprintln(out, renderStatusLine("Downloads", statusOK, "", colorize))
				return nil
			}
			return fmt.Errorf("qc found %d unsorted, %d unindexed, %d unreadable files",
				len(report.Unsorted), len(report.Unindexed), len(report.Errors))
		},
	}

	cmd.Flags().IntVar(&lines, "lines", qc.DefaultSampleLines, "Leading records read by the sort check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	return cmd
}

func newBiosamplesCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "biosamples",
		Short: "Write the biosample table for the analysis pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Biosamples.Output = output
				if err := cfg.Finalize(); err != nil {
					return err
				}
			}
			n, err := biosamples.Write(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d biosamples to %s\n", n, cfg.Biosamples.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination of the biosample table")
	return cmd
}
