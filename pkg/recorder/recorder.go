// Package recorder owns the lifecycle of test runs: start, step and parameter
// appends, screenshot attachment and finish.
//
// A Recorder holds at most one active run. Finished runs are frozen and handed
// out as deep copies. A Recorder is safe for concurrent use, so a signal
// handler can attach a final screenshot while a run is finishing.
package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// Recorder records test runs.
type Recorder struct {
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	active    *core.TestRun
	secrets   []string // masked parameter values of the active run
	completed []core.TestRun
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithIDGenerator overrides run identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) { r.newID = newID }
}

// New creates an idle Recorder.
func New(log zerolog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new run and returns its identifier.
// It fails with core.ErrRunActive if a run is already active; the active run is
// left untouched.
func (r *Recorder) Start(name, description string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return "", core.ErrRunActive.WithDetails(map[string]interface{}{
			"active": r.active.Name,
			"id":     r.active.ID,
		})
	}

	r.active = &core.TestRun{
		ID:          r.newID(),
		Name:        name,
		Description: description,
		Status:      core.StatusRunning,
		StartTime:   r.stamp(),
		Steps:       []core.Step{},
		Parameters:  []core.Parameter{},
		Attachments: []core.Attachment{},
	}
	r.secrets = nil

	r.log.Info().
		Str("run_id", r.active.ID).
		Str("name", name).
		Str("description", description).
		Msg("Starting test")

	return r.active.ID, nil
}

// AddStep appends a step to the active run. Without an active run it logs a
// warning and does nothing.
func (r *Recorder) AddStep(name string, status core.Status, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.log.Warn().Str("step", name).Msg("No active test to add step to")
		return
	}
	if !status.Valid() {
		r.log.Warn().Str("step", name).Str("status", string(status)).Msg("Unknown step status, recording as failed")
		status = core.StatusFailed
	}

	details = scrub(details, r.secrets)
	r.active.Steps = append(r.active.Steps, core.Step{
		Name:      name,
		Status:    status,
		StartTime: r.stamp(),
		Details:   details,
	})

	ev := r.log.Info()
	if status == core.StatusFailed {
		ev = r.log.Warn()
	}
	ev.Str("run_id", r.active.ID).Str("status", string(status)).Str("details", details).Msgf("Step: %s", name)
}

// AddParameter appends a parameter to the active run. Values of parameters whose
// name contains "password" (any case) are replaced by a same-length mask.
func (r *Recorder) AddParameter(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.log.Warn().Str("parameter", name).Msg("No active test to add parameter to")
		return
	}

	if IsSensitive(name) {
		if value != "" && value != Mask(value) {
			r.secrets = append(r.secrets, value)
			r.scrubActive()
		}
		value = Mask(value)
	}

	r.active.Parameters = append(r.active.Parameters, core.Parameter{Name: name, Value: value})
	r.log.Info().Str("run_id", r.active.ID).Msgf("Parameter: %s = %s", name, value)
}

// AttachScreenshot attaches a screenshot to the active run.
// It returns false when no run is active.
func (r *Recorder) AttachScreenshot(rec core.ScreenshotRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return false
	}
	r.active.Attachments = append(r.active.Attachments, rec.Attachment())
	return true
}

// Finish finalizes the active run with the given terminal status and moves it
// to the completed list. Without an active run it logs a warning and does nothing.
func (r *Recorder) Finish(status core.Status, errorMessage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.log.Warn().Msg("No active test to finish")
		return
	}
	if !status.IsTerminal() {
		r.log.Warn().Str("status", string(status)).Msg("Finish requires a terminal status, recording as failed")
		status = core.StatusFailed
	}

	run := r.active
	end := r.stamp()
	if end.Before(run.StartTime) {
		end = run.StartTime
	}
	run.EndTime = &end
	run.Duration = end.Sub(run.StartTime).Milliseconds()
	run.Status = status
	if errorMessage != "" {
		run.ErrorMessage = scrub(errorMessage, r.secrets)
	}

	r.completed = append(r.completed, run.Clone())
	r.active = nil
	r.secrets = nil

	ev := r.log.Info()
	if status == core.StatusFailed {
		ev = r.log.Warn()
	}
	ev.Str("run_id", run.ID).
		Int64("duration_ms", run.Duration).
		Str("error", run.ErrorMessage).
		Msgf("Test finished: %s - %s", run.Name, status)
}

// scrubActive masks the known secrets in what the active run already holds.
func (r *Recorder) scrubActive() {
	for i := range r.active.Parameters {
		r.active.Parameters[i].Value = scrub(r.active.Parameters[i].Value, r.secrets)
	}
	for i := range r.active.Steps {
		r.active.Steps[i].Details = scrub(r.active.Steps[i].Details, r.secrets)
	}
}

// stamp returns the current time at millisecond precision, so durations computed
// from stored timestamps match the recorded duration exactly.
func (r *Recorder) stamp() time.Time {
	return r.now().Truncate(time.Millisecond)
}

// Active returns a copy of the active run.
func (r *Recorder) Active() (core.TestRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return core.TestRun{}, false
	}
	return r.active.Clone(), true
}

// IsActive returns true while a run is in progress.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Completed returns copies of all finished runs in finish order.
func (r *Recorder) Completed() []core.TestRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make([]core.TestRun, len(r.completed))
	for i, run := range r.completed {
		runs[i] = run.Clone()
	}
	return runs
}
