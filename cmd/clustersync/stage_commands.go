package main

import (
	"github.com/spf13/cobra"

	"clustersync/internal/stage"
	"clustersync/internal/workflow"
)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStageCommand(ctx, stage.Download, "Download fragment files for eligible clusters"),
		newStageCommand(ctx, stage.Convert, "Convert analysis results into the submission format"),
		newStageCommand(ctx, stage.Upload, "Upload converted clusters and update the catalog"),
		newStageCommand(ctx, stage.Delete, "Remove clusters that no longer qualify, locally and remotely"),
	}
}

func newStageCommand(ctx *commandContext, name stage.Name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *workflow.Runtime) error {
				report, err := rt.Synchronizer.Run(cmd.Context(), name)
				renderReports(cmd.OutOrStdout(), []workflow.Report{report})
				return err
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var withDelete bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run download, convert, and upload in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *workflow.Runtime) error {
				reports, err := rt.Synchronizer.Sync(cmd.Context(), workflow.SyncOptions{Delete: withDelete})
				renderReports(cmd.OutOrStdout(), reports)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&withDelete, "delete", false, "Run the delete stage after upload")
	return cmd
}
