package core

import (
	"errors"
	"fmt"
	"maps"
)

// ExecutionError is a categorised failure. The predefined values below are
// templates: derive a specific error with WithCause, WithMessage or
// WithDetails, and match it with errors.Is against the template.
type ExecutionError struct {
	Category ErrorCategory
	Code     string // stable machine-readable code, e.g. element_not_found
	Message  string
	Details  map[string]interface{}
	Cause    error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	return ok && e.Code != "" && e.Code == t.Code
}

func (e *ExecutionError) clone() *ExecutionError {
	c := *e
	return &c
}

// WithCause returns a copy with cause attached.
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithMessage returns a copy with msg as its message.
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	c := e.clone()
	c.Message = msg
	return c
}

// WithDetails returns a copy whose details are e's merged with details.
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	c := e.clone()
	c.Details = make(map[string]interface{}, len(e.Details)+len(details))
	maps.Copy(c.Details, e.Details)
	maps.Copy(c.Details, details)
	return c
}

// NewExecutionError creates an ExecutionError.
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{Category: category, Code: code, Message: message}
}

var (
	ErrServerUnreachable = NewExecutionError(ErrCategoryConnection, "server_unreachable", "could not connect to automation server")
	ErrSessionFailed     = NewExecutionError(ErrCategoryConnection, "session_failed", "could not create automation session")
	ErrElementNotFound   = NewExecutionError(ErrCategoryElementNotFound, "element_not_found", "element not found")
	ErrInteractionFailed = NewExecutionError(ErrCategoryInteraction, "interaction_failed", "interaction rejected by backend")
	ErrCaptureFailed     = NewExecutionError(ErrCategoryCapture, "capture_failed", "screenshot capture failed")
	ErrReportWrite       = NewExecutionError(ErrCategoryReportWrite, "report_write_failed", "could not write report artifact")
	ErrRunActive         = NewExecutionError(ErrCategoryInvalidState, "run_active", "a test run is already active")
	ErrInvalidConfig     = NewExecutionError(ErrCategoryConfig, "invalid_config", "invalid configuration")
)

// CategoryOf returns the category of the first ExecutionError in err's
// chain, or ErrCategoryNone.
func CategoryOf(err error) ErrorCategory {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryNone
}
