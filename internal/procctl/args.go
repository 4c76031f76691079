package procctl

import (
	"strconv"

	"foundry/internal/fingerprint"
)

// BuildWorkerArgs derives the worker command line from the spawn parameters
// and the requirement fingerprint inputs. Classpath entries and VM
// arguments are forwarded in the order given; the worker treats VM args as
// opaque launch flags for the action runtime.
func BuildWorkerArgs(socketPath string, parentPID, watchdogInterval int, req fingerprint.Requirements) []string {
	args := []string{
		"--socket", socketPath,
		"--parent-pid", strconv.Itoa(parentPID),
		"--watchdog-interval", strconv.Itoa(watchdogInterval),
	}
	if req.LogLevel != "" {
		args = append(args, "--log-level", req.LogLevel)
	}
	if req.Kind.Name != "" {
		args = append(args, "--kind", req.Kind.Name)
	}
	for _, entry := range req.Classpath {
		args = append(args, "--classpath", entry)
	}
	for _, vmArg := range req.VMArgs {
		args = append(args, "--vm-arg", vmArg)
	}
	return args
}
