package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"foundry/internal/api"
	"foundry/internal/ipc"
)

func newDaemonsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "daemons",
		Short: "List tracked worker daemons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Daemons()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Workers)
				}

				out := cmd.OutOrStdout()
				if len(resp.Workers) == 0 {
					fmt.Fprintln(out, "No worker daemons running")
					return nil
				}
				fmt.Fprintln(out, renderWorkerTable(resp.Workers))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderWorkerTable(workers []api.WorkerInfo) string {
	headers := []string{"ID", "PID", "STATE", "KIND", "FINGERPRINT", "LEVEL", "LAST USED"}
	rows := make([][]string, 0, len(workers))
	for _, w := range workers {
		rows = append(rows, []string{
			shortID(w.ID),
			strconv.Itoa(w.PID),
			w.State,
			w.Kind,
			w.Fingerprint,
			w.LogLevel,
			formatAge(w.LastUsedAt),
		})
	}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
	return renderTable(headers, rows, aligns)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return age.String() + " ago"
}
