package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"foundry/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage build sessions",
	}
	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionEndCommand(ctx))
	return sessionCmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a build session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionStart(logLevel)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.SessionID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level for workers in this session")
	return cmd
}

func newSessionEndCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "end <session-id>",
		Short: "Close a build session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("session id must not be empty")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionEnd(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d worker daemon(s).\n", resp.Stopped)
				return nil
			})
		},
	}
}
