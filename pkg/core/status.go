package core

// Status is the lifecycle state of a test run or a step.
type Status string

// Status values.
const (
	StatusRunning Status = "running" // Run/step in progress
	StatusPassed  Status = "passed"  // Completed successfully
	StatusFailed  Status = "failed"  // Completed with a failure
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusPassed, StatusFailed:
		return true
	default:
		return false
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone            ErrorCategory = iota // No error
	ErrCategoryConnection                           // Session could not be established
	ErrCategoryElementNotFound                      // Locator exhausted every strategy
	ErrCategoryInteraction                          // Backend rejected click/setValue
	ErrCategoryCapture                              // Screenshot could not be taken or stored
	ErrCategoryReportWrite                          // Report artifact could not be written
	ErrCategoryInvalidState                         // Recorder lifecycle misuse
	ErrCategoryConfig                               // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryElementNotFound:
		return "element_not_found"
	case ErrCategoryInteraction:
		return "interaction"
	case ErrCategoryCapture:
		return "capture"
	case ErrCategoryReportWrite:
		return "report_write"
	case ErrCategoryInvalidState:
		return "invalid_state"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// IsFatal returns true for categories that abort a suite instead of failing a
// single run.
func (c ErrorCategory) IsFatal() bool {
	switch c {
	case ErrCategoryConnection, ErrCategoryReportWrite, ErrCategoryInvalidState, ErrCategoryConfig:
		return true
	}
	return false
}
