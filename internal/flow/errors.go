package flow

import (
	"errors"
	"fmt"
)

// ErrTimeout terminates a flow that saw no transition within the configured window.
var ErrTimeout = errors.New("flow: timed out waiting for input")

// ValidationError reports malformed user input. The flow re-prompts in place
// until the retry budget is exhausted, then terminates.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "flow: " + e.Reason
}

// Code implements the error-code contract used by handler summaries.
func (e *ValidationError) Code() string { return "VALIDATION" }

// ProviderError reports a failed call to the session provider. Not locally
// recoverable: the flow terminates.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("flow: provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Code implements the error-code contract used by handler summaries.
func (e *ProviderError) Code() string { return "PROVIDER" }
