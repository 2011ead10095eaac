package locator

import (
	"regexp"
	"strings"
)

// MatchesText reports whether any of texts matches pattern. Patterns that
// look like regular expressions are matched case-insensitively as such;
// anything else is a case-insensitive substring match.
func MatchesText(pattern string, texts ...string) bool {
	if LooksLikeRegex(pattern) {
		re, err := regexp.Compile("(?i)" + pattern)
		if err == nil {
			for _, text := range texts {
				if text == "" {
					continue
				}
				if re.MatchString(text) || re.MatchString(strings.ReplaceAll(text, "\n", " ")) {
					return true
				}
			}
			return false
		}
		// Invalid regex - fall back to contains
	}

	for _, text := range texts {
		if ContainsIgnoreCase(text, pattern) {
			return true
		}
	}
	return false
}

// ContainsIgnoreCase is a case-insensitive strings.Contains.
// An empty substr never matches an empty s.
func ContainsIgnoreCase(s, substr string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// LooksLikeRegex checks if text contains regex metacharacters.
// A standalone period (like in "user.name") is NOT treated as regex.
func LooksLikeRegex(text string) bool {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if i > 0 && text[i-1] == '\\' {
			continue
		}
		switch c {
		case '.':
			// Only a quantified '.' counts
			if i+1 < len(text) {
				next := text[i+1]
				if next == '*' || next == '+' || next == '?' {
					return true
				}
			}
		case '*', '+', '?', '[', ']', '{', '}', '|', '(', ')':
			return true
		case '^':
			if i == 0 {
				return true
			}
		case '$':
			if i == len(text)-1 {
				return true
			}
		}
	}
	return false
}

// hintPattern returns a case-insensitive "contains" regular expression for
// hint, suitable for UiSelector *Matches methods and iOS MATCHES[c].
func hintPattern(hint string) string {
	if LooksLikeRegex(hint) {
		return "(?i).*(" + hint + ").*"
	}
	return "(?i).*" + regexp.QuoteMeta(hint) + ".*"
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EscapeUiAutomatorString escapes quotes and backslashes for a UiSelector string literal.
func EscapeUiAutomatorString(s string) string {
	return quoteEscaper.Replace(s)
}

// EscapeIOSPredicateString escapes quotes and backslashes for an NSPredicate string literal.
func EscapeIOSPredicateString(s string) string {
	return quoteEscaper.Replace(s)
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
