package domain

import "fmt"

// RuleError reports a business precondition that failed: inactive entity,
// past date, occupied slot, duplicate queue membership.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string {
	return e.Reason
}

func NewRuleError(format string, args ...any) error {
	return &RuleError{Reason: fmt.Sprintf(format, args...)}
}

// StateError reports a status transition attempted from a state that does
// not permit it.
type StateError struct {
	Op       string
	Current  string
	Required string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: status is %s, requires %s", e.Op, e.Current, e.Required)
}

// PermissionError reports a caller that does not own the record it tried
// to act on.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}
