package procctl

// OutcomeKind tags the three ways an action can end.
type OutcomeKind int

const (
	// OutcomeSuccess: the action completed and returned a result.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeUserFailure: the action raised an error inside a healthy
	// worker. The worker remains reusable.
	OutcomeUserFailure
	// OutcomeCrash: the worker process exited unexpectedly. The worker is
	// never reused.
	OutcomeCrash
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeUserFailure:
		return "user_failure"
	case OutcomeCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result of one action on one worker. Callers
// branch on Kind instead of unwinding through errors, so crash handling
// stays visible at the allocation site.
type Outcome struct {
	Kind           OutcomeKind
	Result         []byte
	FailureMessage string
	Err            error
}

// Success builds a success outcome carrying the action result.
func Success(result []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

// UserFailure builds a user-level failure outcome.
func UserFailure(message string) Outcome {
	return Outcome{Kind: OutcomeUserFailure, FailureMessage: message}
}

// Crash builds an abnormal-termination outcome.
func Crash(err error) Outcome {
	return Outcome{Kind: OutcomeCrash, Err: err}
}
