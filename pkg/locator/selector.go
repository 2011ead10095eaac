// Package locator resolves semantic UI roles ("username field") to element
// handles by trying an ordered chain of selector strategies.
package locator

import (
	"fmt"
	"strings"
)

// Kind identifies a selector variant.
type Kind int

const (
	KindFramework Kind = iota
	KindAccessibility
	KindHeuristic
)

func (k Kind) String() string {
	switch k {
	case KindFramework:
		return "framework"
	case KindAccessibility:
		return "accessibility"
	case KindHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Selector is one strategy in a locator chain. The set of implementations is
// closed: FrameworkSelector, AccessibilitySelector and HeuristicSelector.
type Selector interface {
	Kind() Kind
	Describe() string
	isSelector()
}

// FrameworkSelector queries the Flutter widget tree through the Flutter
// driver. Key takes precedence over Type, Type over Text.
type FrameworkSelector struct {
	Key   string // ValueKey of the widget
	Type  string // widget runtime type, e.g. TextField
	Text  string // exact text of a Text widget
	Index int    // position among the matches
}

// AccessibilitySelector queries the native accessibility tree: the class name
// narrows the search and the hint is matched against content description,
// resource id and hint text. A hint that looks like a regular expression is
// matched as one. An empty hint selects by class and Index alone.
type AccessibilitySelector struct {
	ClassName string
	Hint      string
	Index     int
}

// HeuristicSelector scans every element of the native tree for one whose
// visible text, description or class matches a hint, ignoring case. Hints
// are in priority order and follow MatchesText; blank hints are ignored.
// ClassName, when set, restricts the scan to that class.
type HeuristicSelector struct {
	Hints     []string
	ClassName string
}

func (FrameworkSelector) Kind() Kind     { return KindFramework }
func (AccessibilitySelector) Kind() Kind { return KindAccessibility }
func (HeuristicSelector) Kind() Kind     { return KindHeuristic }

func (FrameworkSelector) isSelector()     {}
func (AccessibilitySelector) isSelector() {}
func (HeuristicSelector) isSelector()     {}

// strategy returns the Flutter driver strategy and value for the selector.
func (s FrameworkSelector) strategy() (string, string) {
	switch {
	case s.Key != "":
		return "-flutter key", s.Key
	case s.Type != "":
		return "-flutter type", s.Type
	case s.Text != "":
		return "-flutter text", s.Text
	}
	return "", ""
}

// Describe returns a human-readable description.
func (s FrameworkSelector) Describe() string {
	strategy, value := s.strategy()
	if strategy == "" {
		return "flutter: <empty>"
	}
	desc := fmt.Sprintf("flutter %s=%q", strings.TrimPrefix(strategy, "-flutter "), value)
	if s.Index > 0 {
		desc += fmt.Sprintf("[%d]", s.Index)
	}
	return desc
}

// Describe returns a human-readable description.
func (s AccessibilitySelector) Describe() string {
	var parts []string
	if s.ClassName != "" {
		parts = append(parts, "class="+s.ClassName)
	}
	if s.Hint != "" {
		parts = append(parts, fmt.Sprintf("hint=%q", s.Hint))
	}
	if len(parts) == 0 {
		parts = append(parts, "<empty>")
	}
	desc := "accessibility " + strings.Join(parts, " ")
	if s.Index > 0 {
		desc += fmt.Sprintf("[%d]", s.Index)
	}
	return desc
}

// Describe returns a human-readable description.
func (s HeuristicSelector) Describe() string {
	desc := fmt.Sprintf("heuristic %q", s.Hints)
	if s.ClassName != "" {
		desc += " class=" + s.ClassName
	}
	return desc
}

// DescribeChain joins the descriptions of a selector chain.
func DescribeChain(chain []Selector) string {
	parts := make([]string, len(chain))
	for i, sel := range chain {
		parts[i] = sel.Describe()
	}
	return strings.Join(parts, " -> ")
}
