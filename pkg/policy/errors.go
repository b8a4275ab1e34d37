package policy

import (
	"fmt"
	"strings"
)

// RuleError describes one problem found while loading a policy.
type RuleError struct {
	// Index is the rule's position in the policy, or -1 for document-level
	// problems.
	Index int

	// RuleID is the rule's id when known.
	RuleID string

	// Field is the dotted path of the offending field (e.g. "conditions.severity").
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	var sb strings.Builder
	if e.Index >= 0 {
		sb.WriteString(fmt.Sprintf("rules[%d]", e.Index))
		if e.RuleID != "" {
			sb.WriteString(fmt.Sprintf(" (id=%s)", e.RuleID))
		}
	} else {
		sb.WriteString("policy")
	}
	if e.Field != "" {
		sb.WriteString(".")
		sb.WriteString(e.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// LoadError collects every problem found in a policy document.
type LoadError struct {
	// Source is the file path or a descriptive name of the input.
	Source string

	// Cause is set when the document could not be read or decoded at all.
	Cause error

	Errors []*RuleError
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	source := e.Source
	if source == "" {
		source = "policy"
	}
	if e.Cause != nil {
		return fmt.Sprintf("failed to load %s: %v", source, e.Cause)
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid %s: %s", source, e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid %s: %d errors:\n", source, len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Unwrap returns the underlying read or decode error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

func (e *LoadError) add(index int, ruleID, field, format string, args ...any) {
	e.Errors = append(e.Errors, &RuleError{
		Index:   index,
		RuleID:  ruleID,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}
