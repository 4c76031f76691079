package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"foundry/internal/daemonctl"
)

func newUpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Launch foundryd if it is not already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			opts := daemonctl.LaunchOptions{SocketPath: ctx.socketPath()}
			if ctx.configFlag != nil {
				opts.ConfigPath = strings.TrimSpace(*ctx.configFlag)
			}

			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, 10*time.Second)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
}

// daemonExecutable locates the foundryd binary next to the CLI binary,
// falling back to PATH lookup via exec when launched.
func daemonExecutable() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "foundryd", nil
	}
	sibling := filepath.Join(filepath.Dir(self), "foundryd")
	if _, err := os.Stat(sibling); err == nil {
		return sibling, nil
	}
	return "foundryd", nil
}
