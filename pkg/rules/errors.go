package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction indicates an action name outside the known set.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDuplicateRule indicates a provider registered a second function for one action.
	ErrDuplicateRule = errors.New("rule already registered")
)

// EvaluationError reports a decision function that faulted while evaluating an action.
type EvaluationError struct {
	Action Action
	Cause  error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Action, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
