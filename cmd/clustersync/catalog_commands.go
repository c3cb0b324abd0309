package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clustersync/internal/upload"
	"clustersync/internal/workflow"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and publish the dataset catalog",
	}

	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogPublishCommand(ctx))

	return catalogCmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *workflow.Runtime) error {
				table, err := rt.Ledger.Load(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if raw {
					return table.Write(out)
				}

				columns := table.Columns()
				rows := make([][]string, 0, table.Len())
				for i := 0; i < table.Len(); i++ {
					row := make([]string, len(columns))
					for j, col := range columns {
						row[j] = table.Value(i, col)
					}
					rows = append(rows, row)
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
				} else {
					fmt.Fprintln(out, renderTable(columns, rows, nil))
				}
				fmt.Fprintf(out, "Catalog: %s (%d clusters)\n", rt.Ledger.ID(), table.Len())
				fmt.Fprintf(out, "Unpublished changes: %s\n", yesNo(rt.Ledger.Pending()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Write the catalog as tab-separated text")
	return cmd
}

func newCatalogPublishCommand(ctx *commandContext) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish pending catalog changes",
		Long: "Publish a catalog whose earlier publication failed. With --rebuild, every local\n" +
			"upload receipt is merged back into the catalog before publishing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *workflow.Runtime) error {
				out := cmd.OutOrStdout()
				if err := rt.Store.Login(cmd.Context()); err != nil {
					return err
				}
				if rebuild {
					receipts, err := upload.Receipts(rt.Layout)
					if err != nil {
						return err
					}
					if err := rt.Ledger.Apply(cmd.Context(), receipts); err != nil {
						return err
					}
					fmt.Fprintf(out, "Merged %d upload receipts\n", len(receipts))
				}
				pending := rt.Ledger.Pending()
				if err := rt.Ledger.Flush(cmd.Context()); err != nil {
					return err
				}
				if pending || rebuild {
					fmt.Fprintf(out, "Published catalog %s\n", rt.Ledger.ID())
				} else {
					fmt.Fprintln(out, "Catalog already up to date")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Merge local upload receipts into the catalog")
	return cmd
}
