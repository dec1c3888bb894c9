package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by provider constructors when the environment
// carries no usable backend credentials. Callers treat it as a signal to run
// in offline mode rather than as a user-facing failure.
var ErrNotConfigured = errors.New("no model backend configured")

// InvocationError wraps a transport or backend failure during a completion
// call. The orchestrator propagates it unchanged; only the conversation
// layer converts it into user-safe text.
type InvocationError struct {
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s invocation failed: %v", e.Backend, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
