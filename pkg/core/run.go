package core

import (
	"time"
)

// Step is one logged sub-action of a run. Steps are appended, never updated.
type Step struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	StartTime time.Time `json:"startTime"`
	Details   string    `json:"details,omitempty"`
}

// Parameter is a named input of a run. Sensitive values are stored masked.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TestRun captures one execution of a named test scenario.
type TestRun struct {
	// Identity
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Status
	Status Status `json:"status"`

	// Timing
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  int64      `json:"duration"` // milliseconds, set on finish

	// Contents (insertion order is execution order)
	Steps       []Step       `json:"steps"`
	Parameters  []Parameter  `json:"parameters"`
	Attachments []Attachment `json:"attachments"`

	// Error info (only when Status is failed)
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate recorder-owned state.
func (r TestRun) Clone() TestRun {
	c := r
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	c.Steps = append([]Step(nil), r.Steps...)
	c.Parameters = append([]Parameter(nil), r.Parameters...)
	c.Attachments = append([]Attachment(nil), r.Attachments...)
	return c
}

// IsFinished returns true once the run has been finalized.
func (r TestRun) IsFinished() bool {
	return r.EndTime != nil && r.Status.IsTerminal()
}

// StepCounts returns the number of passed and failed steps.
func (r TestRun) StepCounts() (passed, failed int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		}
	}
	return passed, failed
}

// CountByStatus counts runs per terminal status.
func CountByStatus(runs []TestRun) (passed, failed int) {
	for _, r := range runs {
		switch r.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		}
	}
	return passed, failed
}

// AllPassed returns true if there is at least one run and every run passed.
func AllPassed(runs []TestRun) bool {
	for _, r := range runs {
		if r.Status != StatusPassed {
			return false
		}
	}
	return len(runs) > 0
}
