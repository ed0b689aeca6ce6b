package normalize

import (
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func Trim(value string) string {
	return strings.TrimSpace(value)
}

func Lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func EqualFoldTrimmed(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// TrimPrefixFold removes prefix from value when value starts with it,
// ignoring case.
func TrimPrefixFold(value, prefix string) string {
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return value[len(prefix):]
	}
	return value
}

// Color lowercases and trims a hex color. Invalid input returns "".
func Color(value string) string {
	value = Lower(value)
	if !hexColorPattern.MatchString(value) {
		return ""
	}
	return value
}

// IsHexColor reports whether value is a #rgb or #rrggbb color.
func IsHexColor(value string) bool {
	return hexColorPattern.MatchString(strings.TrimSpace(value))
}
