package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clustersync/internal/gate"
	"clustersync/internal/preflight"
	"clustersync/internal/stage"
	"clustersync/internal/workflow"
)

const maxErrorWidth = 60

type statusJSON struct {
	ClusterID string            `json:"cluster_id"`
	Stages    map[string]string `json:"stages"`
	Complete  bool              `json:"complete"`
	LastError *lastErrorJSON    `json:"last_error,omitempty"`
}

type lastErrorJSON struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
	At      string `json:"at"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		checks     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-cluster stage completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *workflow.Runtime) error {
				statuses, err := workflow.Statuses(cmd.Context(), rt.Layout, rt.Gate, rt.History)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, statusesJSON(statuses))
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if checks {
					for _, line := range renderSectionHeader("Preflight", colorize) {
						fmt.Fprintln(out, line)
					}
					for _, r := range preflight.RunAll(cmd.Context(), rt.Config, rt.Store) {
						kind := statusOK
						if !r.Passed {
							kind = statusError
						}
						fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
					}
					fmt.Fprintln(out)
					for _, line := range renderSectionHeader("Stages", colorize) {
						fmt.Fprintln(out, line)
					}
					for _, h := range rt.Synchronizer.Health(cmd.Context()) {
						kind := statusOK
						if !h.Ready {
							kind = statusError
						}
						fmt.Fprintln(out, renderStatusLine(string(h.Stage), kind, h.Detail, colorize))
					}
					fmt.Fprintln(out)
				}
				renderStatuses(out, statuses, rt.Ledger.Pending(), colorize)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&checks, "check", false, "Run preflight and stage health checks before listing clusters")
	return cmd
}

func renderStatuses(out io.Writer, statuses []workflow.ClusterStatus, catalogPending bool, colorize bool) {
	if len(statuses) == 0 {
		fmt.Fprintln(out, "No clusters found")
	} else {
		headers := []string{"Cluster"}
		for _, name := range stage.Pipeline {
			headers = append(headers, stageLabel(name))
		}
		headers = append(headers, "Last error")

		rows := make([][]string, 0, len(statuses))
		complete := 0
		for _, st := range statuses {
			if st.Complete() {
				complete++
			}
			row := []string{st.ClusterID}
			for _, name := range stage.Pipeline {
				row = append(row, renderGateStatus(st.Stages[name], colorize))
			}
			row = append(row, renderLastError(st))
			rows = append(rows, row)
		}
		fmt.Fprintln(out, renderTable(headers, rows, nil))
		fmt.Fprintf(out, "%d of %d clusters complete\n", complete, len(statuses))
	}
	if catalogPending {
		fmt.Fprintln(out, colorText("Catalog has unpublished changes; run 'clustersync catalog publish'", ansiYellow, colorize))
	}
}

func renderGateStatus(status gate.Status, colorize bool) string {
	if status == gate.Complete {
		return colorText("complete", ansiGreen, colorize)
	}
	return "-"
}

func renderLastError(st workflow.ClusterStatus) string {
	if st.LastError.ID == 0 {
		return ""
	}
	msg := st.LastError.ErrorMessage
	if len(msg) > maxErrorWidth {
		msg = msg[:maxErrorWidth-3] + "..."
	}
	return strings.TrimSpace(fmt.Sprintf("%s: %s", st.LastError.Stage, msg))
}

func statusesJSON(statuses []workflow.ClusterStatus) []statusJSON {
	out := make([]statusJSON, 0, len(statuses))
	for _, st := range statuses {
		item := statusJSON{
			ClusterID: st.ClusterID,
			Stages:    make(map[string]string, len(st.Stages)),
			Complete:  st.Complete(),
		}
		for name, status := range st.Stages {
			item.Stages[string(name)] = status.String()
		}
		if st.LastError.ID != 0 {
			item.LastError = &lastErrorJSON{
				Stage:   st.LastError.Stage,
				Kind:    st.LastError.ErrorKind,
				Message: st.LastError.ErrorMessage,
				RunID:   st.LastError.RunID,
				At:      st.LastError.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
			}
		}
		out = append(out, item)
	}
	return out
}
