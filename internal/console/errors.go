package console

import (
	"errors"
	"fmt"
	"strings"

	"grimm.is/rulestage/internal/rules"
)

var (
	// ErrFormInvalid means a field still fails its format check.
	ErrFormInvalid = errors.New("fix the form errors before adding the rule")
	// ErrNothingToSubmit is returned by Submit on an empty draft store.
	ErrNothingToSubmit = errors.New("no staged rules to submit")
	// ErrUnknownKey means the key is not in the active list.
	ErrUnknownKey = errors.New("no active rule with that key")
	// ErrSubmitInFlight means a previous Submit has not returned yet.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("controller closed")
)

// RequiredFieldError lists mandatory fields left empty on AddRule.
type RequiredFieldError struct {
	Category rules.Category
	Fields   []string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Fields, ", "))
}

// LogicalFailureError is a well-formed reply in which the router refused
// the operation.
type LogicalFailureError struct {
	Op      string
	Key     string
	Message string
}

func (e *LogicalFailureError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
