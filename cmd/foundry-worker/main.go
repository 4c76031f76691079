package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"foundry/internal/logging"
	"foundry/internal/worker"
)

// stringList collects repeated flag values in order.
type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var (
		socketPath       string
		parentPID        int
		watchdogInterval int
		logLevel         string
		kind             string
		classpath        stringList
		vmArgs           stringList
	)

	flags := flag.NewFlagSet("foundry-worker", flag.ExitOnError)
	flags.StringVar(&socketPath, "socket", "", "controller socket to dial")
	flags.IntVar(&parentPID, "parent-pid", 0, "pid of the controlling daemon")
	flags.IntVar(&watchdogInterval, "watchdog-interval", 2, "parent liveness poll interval in seconds")
	flags.StringVar(&logLevel, "log-level", "info", "worker log level")
	flags.StringVar(&kind, "kind", "general", "worker kind name")
	flags.Var(&classpath, "classpath", "classpath entry (repeatable)")
	flags.Var(&vmArgs, "vm-arg", "launch argument for the action runtime (repeatable)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if socketPath == "" {
		fmt.Fprintln(os.Stderr, "foundry-worker: --socket is required")
		os.Exit(2)
	}
	if parentPID <= 0 {
		fmt.Fprintln(os.Stderr, "foundry-worker: --parent-pid is required")
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: logLevel, Format: "json"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "foundry-worker: init logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With(
		logging.String(logging.FieldKind, kind),
		logging.Int(logging.FieldPID, os.Getpid()))
	logger.Debug("worker configured",
		logging.Int("classpath_entries", len(classpath)),
		logging.Int("vm_args", len(vmArgs)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := worker.New(worker.Options{
		SocketPath: socketPath,
		Runner:     worker.ExecRunner{},
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "foundry-worker: %v\n", err)
		os.Exit(1)
	}

	// The watchdog is the portable orphan-exit path; prctl parent-death
	// signaling backs it up where the platform supports it. An orphan
	// must not finish an in-flight action against a dead build.
	watchdog := worker.NewWatchdog(parentPID, time.Duration(watchdogInterval)*time.Second, func() {
		logger.Warn("parent process gone, exiting",
			logging.Int("parent_pid", parentPID))
		os.Exit(1)
	})
	go watchdog.Run(ctx)

	if err := runtime.Run(ctx); err != nil {
		logger.Error("worker runtime failed", logging.Error(err))
		os.Exit(1)
	}
}
