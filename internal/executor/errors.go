package executor

import (
	"errors"
	"fmt"
)

// ScriptError is a task-internal failure: the script ran to completion under
// the executor and signalled an error itself.
type ScriptError struct {
	ExitCode int
	Err      error
}

func (e *ScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("script exited with code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("script exited with code %d", e.ExitCode)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// HostError is an executor-level failure: the host could not bring the work
// to a terminal state on its own terms (launch failure, lost process, panic).
type HostError struct {
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("executor failure: %v", e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

// IsHostFailure reports whether err is, or wraps, a HostError.
func IsHostFailure(err error) bool {
	var hostErr *HostError
	return errors.As(err, &hostErr)
}
