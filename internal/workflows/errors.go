package workflows

import (
	"fmt"
)

// ErrorSeverity grades a workflow step failure.
type ErrorSeverity string

const (
	// ErrorSeverityCritical fails the workflow.
	ErrorSeverityCritical ErrorSeverity = "critical"
	// ErrorSeverityHigh is recorded in the result; the workflow continues.
	ErrorSeverityHigh ErrorSeverity = "high"
	// ErrorSeverityLow is logged only.
	ErrorSeverityLow ErrorSeverity = "low"
)

// WorkflowError is a failed workflow step.
type WorkflowError struct {
	Operation string        // e.g. "list_transcripts", "extract_transcript"
	Severity  ErrorSeverity // How severe the error is
	Err       error         // The underlying error
	Context   string        // Identifier of the item being processed, if any
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s failed: %s (%s)", e.Operation, e.Err.Error(), e.Context)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to work with WorkflowError
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new workflow error with context
func NewWorkflowError(operation string, severity ErrorSeverity, err error, context string) *WorkflowError {
	return &WorkflowError{
		Operation: operation,
		Severity:  severity,
		Err:       err,
		Context:   context,
	}
}

// Severity handling:
//
//	CRITICAL: record in result.Errors and return the error.
//	HIGH:     record in result.Errors, skip the item, continue.
//	LOW:      log a warning only.
