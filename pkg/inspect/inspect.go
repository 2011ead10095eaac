// Package inspect categorises a UI tree snapshot and points out the elements
// a login flow is likely to need.
package inspect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/driver/appium"
)

// Category is the coarse kind of a UI element.
type Category string

// Categories, in the order they are reported.
const (
	CategoryTextInput Category = "text_input"
	CategoryButton    Category = "button"
	CategoryText      Category = "text"
	CategoryImage     Category = "image"
	CategoryOther     Category = "other"
)

// Element is the inspection view of one node.
type Element struct {
	Index        int         `json:"index"`
	Class        string      `json:"class"`
	Labels       []string    `json:"labels,omitempty"`
	ResourceName string      `json:"resourceName,omitempty"`
	Clickable    bool        `json:"clickable"`
	Enabled      bool        `json:"enabled"`
	Bounds       core.Bounds `json:"bounds"`
	Category     Category    `json:"category"`
}

// Label returns the first human-readable label, or "".
func (e Element) Label() string {
	if len(e.Labels) == 0 {
		return ""
	}
	return e.Labels[0]
}

// Candidate is an element matched to a role on a login screen.
type Candidate struct {
	Role        string  `json:"role"`
	Description string  `json:"description"`
	Element     Element `json:"element"`
}

// Snapshot is a categorised UI tree.
type Snapshot struct {
	Platform       string      `json:"platform"`
	Contexts       []string    `json:"contexts,omitempty"`
	CurrentContext string      `json:"currentContext,omitempty"`
	Total          int         `json:"total"`
	TextInputs     []Element   `json:"textInputs"`
	Buttons        []Element   `json:"buttons"`
	Clickable      []Element   `json:"clickable"`
	Texts          []Element   `json:"texts"`
	Images         []Element   `json:"images"`
	Other          []Element   `json:"other"`
	Candidates     []Candidate `json:"candidates"`
}

// Source is what Inspect needs from a session.
type Source interface {
	Source() (string, error)
	Contexts() ([]string, error)
	CurrentContext() (string, error)
}

// Inspect fetches the page source from src and categorises it. Context
// listing failures are logged and leave the context fields empty.
func Inspect(src Source, log zerolog.Logger) (*Snapshot, string, error) {
	xml, err := src.Source()
	if err != nil {
		return nil, "", fmt.Errorf("get page source: %w", err)
	}

	snap, err := Parse(xml)
	if err != nil {
		return nil, xml, err
	}

	if contexts, err := src.Contexts(); err != nil {
		log.Debug().Err(err).Msg("cannot list contexts")
	} else {
		snap.Contexts = contexts
	}
	if current, err := src.CurrentContext(); err == nil {
		snap.CurrentContext = current
	}

	log.Info().
		Str("platform", snap.Platform).
		Int("elements", snap.Total).
		Int("candidates", len(snap.Candidates)).
		Msg("screen inspected")
	return snap, xml, nil
}

// Parse categorises a page source document.
func Parse(xml string) (*Snapshot, error) {
	elements, platform, err := appium.ParsePageSource(xml)
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}
	snap := Categorize(elements)
	snap.Platform = platform
	return snap, nil
}

// Categorize sorts parsed elements into categories. Clickable is a separate
// view: a clickable button appears in both Buttons and Clickable.
func Categorize(elements []*appium.ParsedElement) *Snapshot {
	snap := &Snapshot{Total: len(elements)}
	index := make(map[*appium.ParsedElement]int, len(elements))

	for i, pe := range elements {
		index[pe] = i
		e := toElement(i, pe)

		if e.Clickable {
			snap.Clickable = append(snap.Clickable, e)
		}
		switch e.Category {
		case CategoryTextInput:
			snap.TextInputs = append(snap.TextInputs, e)
		case CategoryButton:
			snap.Buttons = append(snap.Buttons, e)
		case CategoryText:
			snap.Texts = append(snap.Texts, e)
		case CategoryImage:
			snap.Images = append(snap.Images, e)
		default:
			snap.Other = append(snap.Other, e)
		}
	}

	snap.Candidates = findCandidates(elements, index)
	return snap
}

func toElement(i int, pe *appium.ParsedElement) Element {
	return Element{
		Index:        i,
		Class:        pe.Class(),
		Labels:       pe.Labels(),
		ResourceName: pe.ResourceName(),
		Clickable:    pe.Clickable,
		Enabled:      pe.Enabled,
		Bounds:       pe.Bounds,
		Category:     categoryOf(pe.Class()),
	}
}

func categoryOf(class string) Category {
	switch {
	case strings.Contains(class, "EditText"), strings.Contains(class, "TextField"):
		return CategoryTextInput
	case strings.Contains(class, "Button"):
		return CategoryButton
	case strings.Contains(class, "TextView"), strings.Contains(class, "StaticText"):
		return CategoryText
	case strings.Contains(class, "Image"):
		return CategoryImage
	default:
		return CategoryOther
	}
}

// rolePattern describes one kind of login screen element. Patterns are
// tried in order across the whole tree, so earlier ones win.
type rolePattern struct {
	role        string
	description string
	inputs      bool // match text inputs rather than tappable elements
	patterns    []*regexp.Regexp
}

var rolePatterns = []rolePattern{
	{"username", "Email/Username field", true, compile(`user`, `e-?mail`)},
	{"password", "Password field", true, compile(`pass`)},
	{"submit", "Login button", false, compile(`submit`, `sign.?in`, `log.?in`)},
	{"forgot", "Forgot password link", false, compile(`forgot|reset`)},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// findCandidates returns at most one element per role. Tappable roles match
// on any element's labels and resolve to its clickable ancestor, since
// Flutter draws button labels as separate nodes; clickable elements are
// preferred.
func findCandidates(elements []*appium.ParsedElement, index map[*appium.ParsedElement]int) []Candidate {
	candidates := []Candidate{}
	ordered := appium.SortClickableFirst(elements)
	taken := make(map[*appium.ParsedElement]bool)

	for _, rp := range rolePatterns {
		if target := matchRole(rp, ordered, taken); target != nil {
			taken[target] = true
			candidates = append(candidates, Candidate{
				Role:        rp.role,
				Description: rp.description,
				Element:     toElement(index[target], target),
			})
		}
	}
	return candidates
}

func matchRole(rp rolePattern, elements []*appium.ParsedElement, taken map[*appium.ParsedElement]bool) *appium.ParsedElement {
	for _, re := range rp.patterns {
		for _, pe := range elements {
			isInput := categoryOf(pe.Class()) == CategoryTextInput
			if isInput != rp.inputs {
				continue
			}
			target := pe
			if !rp.inputs {
				target = appium.GetClickableElement(pe)
			}
			if taken[target] {
				continue
			}
			if rp.role == "password" && pe.Type == "XCUIElementTypeSecureTextField" {
				return target
			}
			for _, s := range append(pe.Labels(), pe.ResourceName()) {
				if s != "" && re.MatchString(s) {
					return target
				}
			}
		}
	}
	return nil
}
