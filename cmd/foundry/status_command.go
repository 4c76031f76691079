package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"foundry/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and worker pool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Status)
				}

				out := cmd.OutOrStdout()
				status := resp.Status
				fmt.Fprintf(out, "Daemon:   running (pid %d)\n", status.PID)
				fmt.Fprintf(out, "Socket:   %s\n", status.SocketPath)
				fmt.Fprintf(out, "Journal:  %s\n", status.JournalPath)
				fmt.Fprintf(out, "Lock:     %s\n", status.LockPath)
				fmt.Fprintf(out, "Sessions: %d\n", status.Sessions)
				fmt.Fprintf(out, "Workers:  %d", len(status.Workers))
				if len(status.StateCounts) > 0 {
					fmt.Fprintf(out, " (%s)", formatStateCounts(status.StateCounts))
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func formatStateCounts(counts map[string]int) string {
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, state)
	}
	sort.Strings(states)

	rendered := ""
	for i, state := range states {
		if i > 0 {
			rendered += ", "
		}
		rendered += fmt.Sprintf("%d %s", counts[state], state)
	}
	return rendered
}
