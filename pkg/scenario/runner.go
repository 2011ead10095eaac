package scenario

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// LoginCase is one set of credentials to exercise.
type LoginCase struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// DefaultCases is the suite run when none is configured.
func DefaultCases() []LoginCase {
	return []LoginCase{
		{Name: "Valid Login Test", Description: "Test login with valid credentials", Username: "validuser", Password: "validpass123"},
		{Name: "Invalid Login Test", Description: "Test login with invalid credentials", Username: "invaliduser", Password: "wrongpass"},
		{Name: "Empty Credentials Test", Description: "Test login with empty credentials", Username: "", Password: ""},
	}
}

// SingleCase builds the case run by single mode.
func SingleCase(username, password string) LoginCase {
	return LoginCase{
		Name:        "Flutter Login Test",
		Description: "Automated login test with screenshot capture",
		Username:    username,
		Password:    password,
	}
}

// Pauses are fixed waits between phases of the flow.
type Pauses struct {
	AfterNavigation time.Duration `yaml:"afterNavigation"`
	AfterSubmit     time.Duration `yaml:"afterSubmit"`
	BetweenTests    time.Duration `yaml:"betweenTests"`
}

// DefaultPauses matches the timings the sample app needs to settle.
func DefaultPauses() Pauses {
	return Pauses{
		AfterNavigation: 2 * time.Second,
		AfterSubmit:     2 * time.Second,
		BetweenTests:    2 * time.Second,
	}
}

// Connector opens a new automation session.
type Connector func() (core.Session, error)

// Recorder is the run lifecycle the runner drives. Implemented by recorder.Recorder.
type Recorder interface {
	StepRecorder
	Start(name, description string) (string, error)
	AddParameter(name, value string)
	Finish(status core.Status, errorMessage string)
	Completed() []core.TestRun
}

// ScreenSource is a Capturer whose backend can be swapped once a session exists.
// Implemented by screenshot.Capturer.
type ScreenSource interface {
	Capturer
	SetSource(src core.ScreenCapturer)
}

// Config controls the login flow.
type Config struct {
	// Targets defaults to DefaultTargets of the session platform.
	Targets *Targets

	Pauses Pauses

	// SwitchToNative records an explicit "Switch to Native Context" step
	// before navigation. Without it the locator switches on demand.
	SwitchToNative bool

	// SkipNavigation starts directly on the login screen.
	SkipNavigation bool
}

// Runner executes login scenarios, one test run each, reusing a single
// session across the suite. Runs must not overlap; Close may be called from
// another goroutine, e.g. a signal handler.
type Runner struct {
	cfg     Config
	connect Connector
	rec     Recorder
	capture ScreenSource
	log     zerolog.Logger
	sleep   func(time.Duration)

	mu      sync.Mutex
	session core.Session
	ui      *Session
}

// Option configures a Runner.
type Option func(*Runner)

// WithSleep replaces time.Sleep for pauses.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// NewRunner creates a Runner. The session is opened on the first run.
func NewRunner(cfg Config, connect Connector, rec Recorder, capture ScreenSource, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		connect: connect,
		rec:     rec,
		capture: capture,
		log:     log,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunSingle runs one login case.
func (r *Runner) RunSingle(c LoginCase) (core.TestRun, error) {
	runs, err := r.RunSuite([]LoginCase{c})
	if len(runs) == 0 {
		return core.TestRun{}, err
	}
	return runs[0], err
}

// RunSuite runs the cases in order and returns their finished runs. An error
// in a fatal category (a connection failure, a run already active) finishes
// the current run as failed and aborts the suite; other failures only fail
// their own run.
func (r *Runner) RunSuite(cases []LoginCase) ([]core.TestRun, error) {
	var runs []core.TestRun
	for i, c := range cases {
		r.log.Info().Int("test", i+1).Int("total", len(cases)).Str("name", c.Name).Msg("Running test")

		run, err := r.RunLogin(c)
		if run.ID != "" {
			runs = append(runs, run)
		}
		if err != nil {
			if core.CategoryOf(err).IsFatal() {
				return runs, err
			}
			r.log.Warn().Err(err).Str("name", c.Name).Msg("Test failed, continuing suite")
		}
		if i < len(cases)-1 {
			r.sleep(r.cfg.Pauses.BetweenTests)
		}
	}
	return runs, nil
}

// RunLogin records one login scenario as a test run. The returned error is
// non-nil only when the suite cannot continue (connection failure, or a run
// already active on the recorder).
func (r *Runner) RunLogin(c LoginCase) (core.TestRun, error) {
	if _, err := r.rec.Start(c.Name, c.Description); err != nil {
		return core.TestRun{}, err
	}
	r.rec.AddParameter("Username", c.Username)
	r.rec.AddParameter("Password", c.Password)

	ui, err := r.connectStep()
	if err != nil {
		return r.finish(core.StatusFailed, "Connection failed: "+err.Error()), err
	}

	if r.cfg.SwitchToNative {
		if err := ui.SwitchToNativeContext(); err != nil {
			return r.fail(err, ""), nil
		}
	}

	targets := r.targets(ui)

	if !r.cfg.SkipNavigation {
		var err error
		if ui.backend.Platform() == "ios" {
			err = ui.ClickIfPresent("Login Screen", "Already on login screen", targets.Navigation...)
		} else {
			err = ui.Click("Login Screen", targets.Navigation...)
		}
		if err != nil {
			return r.fail(err, "Could not click Login Screen"), nil
		}
		r.sleep(r.cfg.Pauses.AfterNavigation)
		r.shot("login_screen_loaded")
	}

	if err := ui.Fill("username", c.Username, targets.Username...); err != nil {
		return r.fail(err, "Could not fill username field"), nil
	}
	if err := ui.Fill("password", c.Password, targets.Password...); err != nil {
		return r.fail(err, "Could not fill password field"), nil
	}
	if err := ui.Click("Submit Button", targets.Submit...); err != nil {
		return r.fail(err, "Could not click submit button"), nil
	}

	r.sleep(r.cfg.Pauses.AfterSubmit)
	r.shot("login_result")

	return r.finish(core.StatusPassed, ""), nil
}

// connectStep records "Connect to App", opening the session on first use.
func (r *Runner) connectStep() (*Session, error) {
	const step = "Connect to App"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.rec.AddStep(step, core.StatusPassed, "Reusing existing session")
		return r.ui, nil
	}

	session, err := r.connect()
	if err != nil {
		if core.CategoryOf(err) == core.ErrCategoryNone {
			err = core.ErrSessionFailed.WithCause(err)
		}
		r.log.Error().Err(err).Msg("Failed to connect")
		r.rec.AddStep(step, core.StatusFailed, "Could not connect to Appium server: "+err.Error())
		return nil, err
	}

	r.session = session
	r.capture.SetSource(session)
	r.ui = NewSession(session, r.capture, r.rec, r.log)
	r.shot("initial_connection")
	r.rec.AddStep(step, core.StatusPassed, "Successfully connected to Appium")
	return r.ui, nil
}

func (r *Runner) targets(ui *Session) Targets {
	if r.cfg.Targets != nil {
		return *r.cfg.Targets
	}
	return DefaultTargets(ui.backend.Platform())
}

// fail finishes the run as failed. Not-found elements use notFoundMsg;
// backend errors take a diagnostic screenshot and use the error text.
func (r *Runner) fail(err error, notFoundMsg string) core.TestRun {
	if errors.Is(err, core.ErrElementNotFound) && notFoundMsg != "" {
		return r.finish(core.StatusFailed, notFoundMsg)
	}
	r.shot("test_error")
	return r.finish(core.StatusFailed, err.Error())
}

// finish takes the closing screenshot while the run is still active, then
// finalises it.
func (r *Runner) finish(status core.Status, errMsg string) core.TestRun {
	r.shot("test_end_" + status.String())
	r.rec.Finish(status, errMsg)

	completed := r.rec.Completed()
	if len(completed) == 0 {
		return core.TestRun{}
	}
	run := completed[len(completed)-1]
	r.log.Info().
		Str("run_id", run.ID).
		Str("status", run.Status.String()).
		Int64("duration_ms", run.Duration).
		Msg("Test finished")
	return run
}

func (r *Runner) shot(label string) {
	_, _ = r.capture.Capture(label)
}

// Close captures a final screenshot and deletes the session. It is safe to
// call more than once.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	r.shot("final_cleanup")
	err := r.session.Close()
	r.session = nil
	r.ui = nil
	r.capture.SetSource(nil)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	r.log.Info().Msg("Session cleaned up")
	return nil
}
