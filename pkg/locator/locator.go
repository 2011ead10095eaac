package locator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// Backend is the subset of core.Backend the locator needs.
type Backend interface {
	core.ElementQuerier
	core.ContextSwitcher
	Platform() string
}

// Match is a resolved element.
type Match struct {
	ElementID string
	Selector  Selector // the selector that produced the match
	Position  int      // index of Selector in the chain
}

// Strategy describes the selector that produced the match.
func (m Match) Strategy() string {
	if m.Selector == nil {
		return ""
	}
	return m.Selector.Describe()
}

// Locator resolves selector chains against a backend. It never interacts with
// elements; the only backend state it changes is the automation context, and
// an element is always used in the context it was found in.
type Locator struct {
	backend Backend
	log     zerolog.Logger
}

// New creates a Locator.
func New(backend Backend, log zerolog.Logger) *Locator {
	return &Locator{backend: backend, log: log}
}

// Locate tries each selector in order and returns the first match. Query
// errors count as "no match" for that selector. The backend is moved to the
// FLUTTER context before framework selectors and to NATIVE_APP before native
// ones, whenever the target context is offered. When every selector comes up
// empty the error is core.ErrElementNotFound.
func (l *Locator) Locate(name string, chain ...Selector) (Match, error) {
	log := l.log.With().Str("element", name).Logger()
	var context string

	for i, sel := range chain {
		if want := contextFor(sel); want != context {
			l.ensureContext(want, log)
			context = want
		}

		id, err := l.resolve(sel)
		if err != nil {
			log.Debug().Err(err).Str("selector", sel.Describe()).Msg("strategy failed")
			continue
		}
		if id == "" {
			log.Debug().Str("selector", sel.Describe()).Msg("no match")
			continue
		}

		log.Info().Str("selector", sel.Describe()).Str("element_id", id).Msg("element located")
		return Match{ElementID: id, Selector: sel, Position: i}, nil
	}

	log.Warn().Int("strategies", len(chain)).Msg("element not found")
	return Match{}, core.ErrElementNotFound.
		WithMessage(fmt.Sprintf("element not found: %s", name)).
		WithDetails(map[string]interface{}{
			"element":    name,
			"strategies": DescribeChain(chain),
		})
}

// contextFor returns the automation context a selector is evaluated in.
func contextFor(sel Selector) string {
	if sel.Kind() == KindFramework {
		return core.ContextFlutter
	}
	return core.ContextNative
}

// ensureContext switches to want when the backend offers it and is in
// another context. Failures are logged; queries then simply come back empty.
func (l *Locator) ensureContext(want string, log zerolog.Logger) {
	current, err := l.backend.CurrentContext()
	if err == nil && current == want {
		return
	}
	contexts, err := l.backend.Contexts()
	if err != nil {
		log.Debug().Err(err).Msg("cannot list contexts")
		return
	}
	for _, c := range contexts {
		if c == want {
			if err := l.backend.SwitchContext(want); err != nil {
				log.Warn().Err(err).Str("context", want).Msg("switch context failed")
				return
			}
			log.Debug().Str("from", current).Str("to", want).Msg("switched context")
			return
		}
	}
}

func (l *Locator) resolve(sel Selector) (string, error) {
	switch s := sel.(type) {
	case FrameworkSelector:
		return l.resolveFramework(s)
	case AccessibilitySelector:
		return l.resolveAccessibility(s)
	case HeuristicSelector:
		return l.resolveHeuristic(s)
	default:
		return "", fmt.Errorf("unknown selector %T", sel)
	}
}

func (l *Locator) resolveFramework(s FrameworkSelector) (string, error) {
	strategy, value := s.strategy()
	if strategy == "" {
		return "", nil
	}
	return l.pick(strategy, value, s.Index)
}

// pick runs one query and returns the element at index.
func (l *Locator) pick(strategy, value string, index int) (string, error) {
	ids, err := l.backend.FindElements(strategy, value)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(ids) {
		return "", nil
	}
	return ids[index], nil
}

func (l *Locator) resolveAccessibility(s AccessibilitySelector) (string, error) {
	queries := accessibilityQueries(l.backend.Platform(), s)
	var lastErr error
	for _, q := range queries {
		id, err := l.pick(q.strategy, q.value, s.Index)
		if err != nil {
			lastErr = err
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", lastErr
}

type query struct {
	strategy string
	value    string
}

// accessibilityQueries expands an AccessibilitySelector into native queries,
// most specific first.
func accessibilityQueries(platform string, s AccessibilitySelector) []query {
	if s.ClassName == "" && s.Hint == "" {
		return nil
	}
	if platform == "ios" {
		return []query{{"-ios predicate string", iosPredicate(s)}}
	}

	base := "new UiSelector()"
	if s.ClassName != "" {
		base += fmt.Sprintf(`.className("%s")`, EscapeUiAutomatorString(s.ClassName))
	}
	if s.Hint == "" {
		return []query{{"-android uiautomator", base}}
	}

	pattern := EscapeUiAutomatorString(hintPattern(s.Hint))
	queries := []query{
		{"-android uiautomator", fmt.Sprintf(`%s.descriptionMatches("%s")`, base, pattern)},
		{"-android uiautomator", fmt.Sprintf(`%s.resourceIdMatches("%s")`, base, pattern)},
	}
	// XPath 1.0 has no regex; hint text is only searched for literal hints
	if !LooksLikeRegex(s.Hint) {
		node := s.ClassName
		if node == "" {
			node = "*"
		}
		queries = append(queries, query{"xpath", fmt.Sprintf(
			"//%s[contains(translate(@hint, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %s)]",
			node, xpathLiteral(strings.ToLower(s.Hint)))})
	}
	return queries
}

func iosPredicate(s AccessibilitySelector) string {
	var clauses []string
	if s.Hint != "" {
		op, value := "CONTAINS[c]", s.Hint
		if LooksLikeRegex(s.Hint) {
			op, value = "MATCHES[c]", ".*("+s.Hint+").*"
		}
		value = EscapeIOSPredicateString(value)
		var attrs []string
		for _, attr := range []string{"name", "label", "value", "placeholderValue"} {
			attrs = append(attrs, fmt.Sprintf(`%s %s "%s"`, attr, op, value))
		}
		clauses = append(clauses, "("+strings.Join(attrs, " OR ")+")")
	}
	if s.ClassName != "" {
		clauses = append(clauses, fmt.Sprintf(`type == "%s"`, EscapeIOSPredicateString(s.ClassName)))
	}
	return strings.Join(clauses, " AND ")
}

// probeNames returns the description and class attribute names per platform.
func probeNames(platform string) (desc, class string) {
	if platform == "ios" {
		return "label", "type"
	}
	return "content-desc", "class"
}

// resolveHeuristic probes every element once, then tries the hints in
// order so that earlier hints win over later ones.
func (l *Locator) resolveHeuristic(s HeuristicSelector) (string, error) {
	s.Hints = slices.DeleteFunc(slices.Clone(s.Hints), func(h string) bool {
		return strings.TrimSpace(h) == ""
	})
	if len(s.Hints) == 0 {
		return "", nil
	}
	ids, err := l.backend.FindElements("xpath", "//*")
	if err != nil {
		return "", err
	}

	type candidate struct {
		id    string
		texts []string
	}
	descAttr, classAttr := probeNames(l.backend.Platform())
	var candidates []candidate
	for _, id := range ids {
		class := l.backend.ProbeAttribute(id, classAttr)
		if s.ClassName != "" && !(class.Supported && ContainsIgnoreCase(class.Value, s.ClassName)) {
			continue
		}

		c := candidate{id: id}
		for _, v := range []core.AttrValue{l.backend.ProbeText(id), l.backend.ProbeAttribute(id, descAttr), class} {
			if v.Present() {
				c.texts = append(c.texts, v.Value)
			}
		}
		candidates = append(candidates, c)
	}

	for _, hint := range s.Hints {
		for _, c := range candidates {
			if MatchesText(hint, c.texts...) {
				return c.id, nil
			}
		}
	}
	return "", nil
}
