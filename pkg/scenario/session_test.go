package scenario

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/driver/mock"
	"github.com/devicelab-dev/flutter-login-runner/pkg/locator"
)

type stepLog struct {
	steps []core.Step
}

func (l *stepLog) AddStep(name string, status core.Status, details string) {
	l.steps = append(l.steps, core.Step{Name: name, Status: status, Details: details})
}

type labelLog struct {
	labels []string
}

func (l *labelLog) Capture(label string) (*core.ScreenshotRecord, error) {
	l.labels = append(l.labels, label)
	return &core.ScreenshotRecord{Name: label}, nil
}

func TestSession_OneStepPerAction(t *testing.T) {
	d := mock.New(mock.LoginScreen("android"))
	steps, shots := &stepLog{}, &labelLog{}
	s := NewSession(d, shots, steps, zerolog.Nop())

	err := s.Fill("Password", "s3cret", locator.FrameworkSelector{Key: "password_field"})
	assert.NoError(t, err)

	assert.Len(t, steps.steps, 1)
	assert.Equal(t, "Fill Password", steps.steps[0].Name)
	assert.Equal(t, `Filled with "******" (6 chars) via flutter key="password_field"`, steps.steps[0].Details)
	assert.Equal(t, []string{"before_fill_password", "after_fill_password"}, shots.labels)
	assert.Equal(t, []string{"find -flutter key password_field", "clear pass", "setValue pass"}, d.Calls())
}

func TestSession_NotFound(t *testing.T) {
	d := mock.New(mock.LoginScreen("android"))
	steps, shots := &stepLog{}, &labelLog{}
	s := NewSession(d, shots, steps, zerolog.Nop())

	err := s.Click("Forgot Password", locator.FrameworkSelector{Key: "forgot"})
	assert.ErrorIs(t, err, core.ErrElementNotFound)
	assert.Len(t, steps.steps, 1)
	assert.Equal(t, core.StatusFailed, steps.steps[0].Status)
	assert.Equal(t, `Element not found: Forgot Password (tried flutter key="forgot")`, steps.steps[0].Details)
	assert.Equal(t, []string{"not_found_click_forgot_password"}, shots.labels)
}

func TestSession_InteractionFailure(t *testing.T) {
	cfg := mock.LoginScreen("android")
	cfg.Elements[3].Disabled = true
	d := mock.New(cfg)
	steps, shots := &stepLog{}, &labelLog{}
	s := NewSession(d, shots, steps, zerolog.Nop())

	err := s.Click("Submit", locator.FrameworkSelector{Key: "login_button"})
	assert.ErrorIs(t, err, core.ErrInteractionFailed)
	assert.Equal(t, core.ErrCategoryInteraction, core.CategoryOf(err))
	assert.Len(t, steps.steps, 1)
	assert.Equal(t, "click Submit failed: element not interactable: submit", steps.steps[0].Details)
	assert.Equal(t, []string{"before_click_submit", "error_click_submit"}, shots.labels)
}

func TestSession_SwitchToNativeContextError(t *testing.T) {
	cfg := mock.LoginScreen("android")
	cfg.ContextsErr = assert.AnError
	steps := &stepLog{}
	s := NewSession(mock.New(cfg), &labelLog{}, steps, zerolog.Nop())

	err := s.SwitchToNativeContext()
	assert.ErrorIs(t, err, core.ErrInteractionFailed)
	assert.Len(t, steps.steps, 1)
	assert.Equal(t, core.StatusFailed, steps.steps[0].Status)
}

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseSearching, PhaseFound, true},
		{PhaseSearching, PhaseNotFound, true},
		{PhaseSearching, PhaseInteracting, false},
		{PhaseFound, PhaseInteracting, true},
		{PhaseFound, PhaseStepPassed, false},
		{PhaseNotFound, PhaseStepFailed, true},
		{PhaseInteracting, PhaseStepPassed, true},
		{PhaseInteracting, PhaseStepFailed, true},
		{PhaseStepPassed, PhaseSearching, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canAdvance(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, PhaseStepFailed.IsTerminal())
	assert.False(t, PhaseFound.IsTerminal())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "submit_button", slug("Submit Button"))
	assert.Equal(t, "login_screen", slug("  Login \t Screen "))
}

func TestDefaultTargets(t *testing.T) {
	android := DefaultTargets("android")
	ios := DefaultTargets("ios")

	assert.Equal(t, locator.FrameworkSelector{Key: "username_field"}, android.Username[0])
	assert.Equal(t, locator.AccessibilitySelector{ClassName: "XCUIElementTypeSecureTextField", Hint: "password"}, ios.Password[2])
	for _, chain := range [][]locator.Selector{android.Navigation, android.Username, android.Password, android.Submit} {
		assert.Equal(t, locator.KindFramework, chain[0].Kind())
		assert.Equal(t, locator.KindHeuristic, chain[len(chain)-1].Kind())
	}
}
