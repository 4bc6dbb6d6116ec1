package security

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSelectorLength bounds CSS selectors passed to the page.
const MaxSelectorLength = 1024

// ValidateSelector checks a CSS selector before it is sent to the browser.
// Selectors are passed as call arguments, never spliced into scripts, so
// only size and encoding are checked here; the page reports syntax errors.
// Returns an error message if invalid, empty string if valid.
func ValidateSelector(selector string) string {
	if len(selector) > MaxSelectorLength {
		return "selector too long (max 1024 characters)"
	}
	if !utf8.ValidString(selector) {
		return "selector is not valid UTF-8"
	}
	if strings.IndexFunc(selector, func(r rune) bool {
		return unicode.IsControl(r) && r != '\t'
	}) >= 0 {
		return "selector contains control characters"
	}
	if selector != "" && strings.TrimSpace(selector) == "" {
		return "selector is blank"
	}
	return ""
}
