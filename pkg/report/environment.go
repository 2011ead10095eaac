package report

import (
	"strings"
	"time"
)

// Property is one environment.properties entry.
type Property struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Environment is an ordered list of properties. Order is kept in the output.
type Environment []Property

// DefaultEnvironment describes the run the way the Allure "Environment"
// widget shows it.
func DefaultEnvironment(platform, device, app string, now time.Time) Environment {
	return Environment{
		{Key: "Platform", Value: platform},
		{Key: "Device", Value: device},
		{Key: "App", Value: app},
		{Key: "Automation", Value: "Appium + Flutter Driver"},
		{Key: "Test Framework", Value: "flutter-login-runner"},
		{Key: "Date", Value: now.UTC().Format(time.RFC3339)},
	}
}

// Set replaces the value of key, or appends it when absent.
func (e Environment) Set(key, value string) Environment {
	for i := range e {
		if e[i].Key == key {
			out := append(Environment(nil), e...)
			out[i].Value = value
			return out
		}
	}
	return append(append(Environment(nil), e...), Property{Key: key, Value: value})
}

// Get returns the value of key.
func (e Environment) Get(key string) (string, bool) {
	for _, p := range e {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Properties renders the list in java.util.Properties format, one
// key=value per line.
func (e Environment) Properties() string {
	var b strings.Builder
	for _, p := range e {
		b.WriteString(escapeProperty(p.Key, true))
		b.WriteByte('=')
		b.WriteString(escapeProperty(p.Value, false))
		b.WriteByte('\n')
	}
	return b.String()
}

// escapeProperty escapes the characters java.util.Properties treats
// specially. Spaces only need escaping inside keys.
func escapeProperty(s string, key bool) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '=', ':', '#', '!':
			if key {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case ' ':
			if key {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
