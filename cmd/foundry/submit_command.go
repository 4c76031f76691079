package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"foundry/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID   string
		classpath   []string
		vmArgs      []string
		logLevel    string
		kind        string
		payloadFile string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run one action on a matching worker daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(classpath) == 0 {
				return errors.New("at least one --classpath entry is required")
			}

			var payload []byte
			if payloadFile != "" {
				data, err := os.ReadFile(payloadFile)
				if err != nil {
					return fmt.Errorf("read payload: %w", err)
				}
				payload = data
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					SessionID: strings.TrimSpace(sessionID),
					Classpath: classpath,
					VMArgs:    vmArgs,
					LogLevel:  logLevel,
					Kind:      kind,
					Payload:   payload,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Result)
				}

				out := cmd.OutOrStdout()
				result := resp.Result
				switch result.Outcome {
				case "success":
					fmt.Fprintf(out, "Action succeeded on worker %s (pid %d)\n", shortID(result.WorkerID), result.PID)
					if len(result.Result) > 0 {
						fmt.Fprintln(out, string(result.Result))
					}
				case "user_failure":
					fmt.Fprintf(out, "Action failed on worker %s: %s\n", shortID(result.WorkerID), result.FailureMessage)
					return errors.New("action failed")
				default:
					fmt.Fprintf(out, "Worker %s terminated abnormally\n", shortID(result.WorkerID))
					return errors.New("worker crashed")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session to run the action under")
	cmd.Flags().StringArrayVar(&classpath, "classpath", nil, "Classpath entry (repeatable)")
	cmd.Flags().StringArrayVar(&vmArgs, "vm-arg", nil, "Worker launch argument (repeatable, order matters)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level the worker must run at")
	cmd.Flags().StringVar(&kind, "kind", "general", "Worker kind")
	cmd.Flags().StringVar(&payloadFile, "payload", "", "File containing the action payload")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}
