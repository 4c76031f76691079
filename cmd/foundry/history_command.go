package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"foundry/internal/api"
	"foundry/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	var showWorkers bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent worker lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				if showWorkers {
					if len(resp.Workers) == 0 {
						fmt.Fprintln(out, "No workers recorded")
						return nil
					}
					fmt.Fprintln(out, renderWorkerTable(resp.Workers))
					return nil
				}

				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No events recorded")
					return nil
				}
				fmt.Fprintln(out, renderEventTable(resp.Events))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to show")
	cmd.Flags().BoolVar(&showWorkers, "workers", false, "Show the worker history instead of events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderEventTable(events []api.Event) string {
	headers := []string{"TIME", "WORKER", "EVENT", "DETAIL"}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.At.Local().Format("2006-01-02 15:04:05"),
			shortID(ev.WorkerID),
			ev.Name,
			ev.Detail,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}
	return renderTable(headers, rows, aligns)
}
