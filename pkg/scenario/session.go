// Package scenario drives login scenarios against an automation backend and
// records them as test runs.
package scenario

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/locator"
	"github.com/devicelab-dev/flutter-login-runner/pkg/recorder"
)

// StepRecorder receives one step per logical action. Implemented by recorder.Recorder.
type StepRecorder interface {
	AddStep(name string, status core.Status, details string)
}

// Capturer takes labelled screenshots. Implemented by screenshot.Capturer.
type Capturer interface {
	Capture(label string) (*core.ScreenshotRecord, error)
}

// Phase is a state of the interaction state machine.
type Phase string

const (
	PhaseSearching   Phase = "searching"
	PhaseFound       Phase = "found"
	PhaseNotFound    Phase = "not_found"
	PhaseInteracting Phase = "interacting"
	PhaseStepPassed  Phase = "step_passed"
	PhaseStepFailed  Phase = "step_failed"
)

// transitions lists the legal successors of each phase.
var transitions = map[Phase][]Phase{
	PhaseSearching:   {PhaseFound, PhaseNotFound},
	PhaseFound:       {PhaseInteracting},
	PhaseNotFound:    {PhaseStepFailed, PhaseStepPassed},
	PhaseInteracting: {PhaseStepPassed, PhaseStepFailed},
}

// canAdvance reports whether from -> to is a legal transition.
func canAdvance(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the phase ends an interaction.
func (p Phase) IsTerminal() bool {
	return p == PhaseStepPassed || p == PhaseStepFailed
}

// interaction tracks one logical action through the state machine.
type interaction struct {
	phase Phase
	log   zerolog.Logger
}

func (it *interaction) advance(next Phase) {
	if !canAdvance(it.phase, next) {
		it.log.Error().Str("from", string(it.phase)).Str("to", string(next)).Msg("illegal interaction transition")
	}
	it.log.Debug().Str("from", string(it.phase)).Str("phase", string(next)).Msg("interaction")
	it.phase = next
}

// Session performs interactions on one backend. Every interaction ends with a
// screenshot and exactly one recorded step.
type Session struct {
	backend core.Backend
	locator *locator.Locator
	capture Capturer
	steps   StepRecorder
	log     zerolog.Logger
}

// NewSession creates a Session over backend.
func NewSession(backend core.Backend, capture Capturer, steps StepRecorder, log zerolog.Logger) *Session {
	return &Session{
		backend: backend,
		locator: locator.New(backend, log),
		capture: capture,
		steps:   steps,
		log:     log,
	}
}

// Click locates the element and clicks it. The step is named "Click <name>".
func (s *Session) Click(name string, chain ...locator.Selector) error {
	return s.interact("click", "Click "+name, name, chain, false, func(id string) error {
		return s.backend.Click(id)
	}, func(m locator.Match) string {
		return "Clicked via " + m.Strategy()
	})
}

// ClickIfPresent is Click, except that a missing element is recorded as a
// passed step with the given details instead of a failure.
func (s *Session) ClickIfPresent(name, absentDetails string, chain ...locator.Selector) error {
	return s.interact("click", "Click "+name, name, chain, true, func(id string) error {
		return s.backend.Click(id)
	}, func(m locator.Match) string {
		if m.ElementID == "" {
			return absentDetails
		}
		return "Clicked via " + m.Strategy()
	})
}

// Fill locates the field, clears it and types text. The step is named
// "Fill <name>"; values of sensitive fields are masked in the step details.
func (s *Session) Fill(name, text string, chain ...locator.Selector) error {
	return s.interact("fill", "Fill "+name, name, chain, false, func(id string) error {
		if err := s.backend.Clear(id); err != nil {
			// Some Flutter drivers cannot clear; typing still works
			s.log.Debug().Err(err).Str("element", name).Msg("clear failed")
		}
		return s.backend.SetValue(id, text)
	}, func(m locator.Match) string {
		return fmt.Sprintf("Filled with %q (%d chars) via %s",
			recorder.MaskIfSensitive(name, text), utf8.RuneCountInString(text), m.Strategy())
	})
}

func (s *Session) interact(action, step, name string, chain []locator.Selector, optional bool,
	do func(id string) error, passed func(locator.Match) string) error {
	label := action + "_" + slug(name)
	it := &interaction{
		phase: PhaseSearching,
		log:   s.log.With().Str("action", action).Str("element", name).Logger(),
	}

	match, err := s.locator.Locate(name, chain...)
	if err != nil {
		it.advance(PhaseNotFound)
		if optional {
			s.shot("after_" + label)
			it.advance(PhaseStepPassed)
			s.steps.AddStep(step, core.StatusPassed, passed(locator.Match{}))
			return nil
		}
		s.shot("not_found_" + label)
		it.advance(PhaseStepFailed)
		s.steps.AddStep(step, core.StatusFailed,
			fmt.Sprintf("Element not found: %s (tried %s)", name, locator.DescribeChain(chain)))
		return err
	}

	it.advance(PhaseFound)
	s.shot("before_" + label)

	it.advance(PhaseInteracting)
	if err := do(match.ElementID); err != nil {
		failure := core.ErrInteractionFailed.
			WithMessage(fmt.Sprintf("%s %s failed", action, name)).
			WithCause(err).
			WithDetails(map[string]interface{}{"element": name, "selector": match.Strategy()})
		s.shot("error_" + label)
		it.advance(PhaseStepFailed)
		s.steps.AddStep(step, core.StatusFailed, failure.Error())
		return failure
	}

	s.shot("after_" + label)
	it.advance(PhaseStepPassed)
	s.steps.AddStep(step, core.StatusPassed, passed(match))
	return nil
}

// SwitchToNativeContext moves the backend to NATIVE_APP and records the
// "Switch to Native Context" step. A backend without NATIVE_APP yields a
// failed step but no error; failing to list or switch contexts is an error.
func (s *Session) SwitchToNativeContext() error {
	const step = "Switch to Native Context"

	contexts, err := s.backend.Contexts()
	if err != nil {
		s.steps.AddStep(step, core.StatusFailed, err.Error())
		return core.ErrInteractionFailed.WithMessage("list contexts failed").WithCause(err)
	}
	available := strings.Join(contexts, ", ")

	for _, c := range contexts {
		if c != core.ContextNative {
			continue
		}
		current, _ := s.backend.CurrentContext()
		if current == core.ContextNative {
			s.steps.AddStep(step, core.StatusPassed,
				fmt.Sprintf("Already in %s context (available: %s)", core.ContextNative, available))
			return nil
		}
		if err := s.backend.SwitchContext(core.ContextNative); err != nil {
			s.steps.AddStep(step, core.StatusFailed, err.Error())
			return core.ErrInteractionFailed.WithMessage("switch context failed").WithCause(err)
		}
		s.steps.AddStep(step, core.StatusPassed,
			fmt.Sprintf("Switched from %s to %s (available: %s)", current, core.ContextNative, available))
		return nil
	}

	s.log.Warn().Str("contexts", available).Msg("native context not available")
	s.steps.AddStep(step, core.StatusFailed,
		fmt.Sprintf("%s context not available (available: %s)", core.ContextNative, available))
	return nil
}

func (s *Session) shot(label string) {
	// Capture failures are logged by the capturer and never fail a step
	_, _ = s.capture.Capture(label)
}

// slug turns an element name into a screenshot label fragment.
func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
