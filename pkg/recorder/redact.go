package recorder

import (
	"strings"
	"unicode/utf8"
)

// MaskChar replaces every character of a redacted value.
const MaskChar = "*"

// sensitiveMarker is matched case-insensitively against parameter names.
const sensitiveMarker = "password"

// IsSensitive reports whether a parameter with this name must be masked.
func IsSensitive(name string) bool {
	return strings.Contains(strings.ToLower(name), sensitiveMarker)
}

// Mask returns a mask with one MaskChar per character of value.
func Mask(value string) string {
	return strings.Repeat(MaskChar, utf8.RuneCountInString(value))
}

// MaskIfSensitive masks value when name is sensitive and returns it unchanged otherwise.
func MaskIfSensitive(name, value string) string {
	if IsSensitive(name) {
		return Mask(value)
	}
	return value
}

// scrub replaces every occurrence of each secret in s with its mask.
func scrub(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask(secret))
	}
	return s
}
