package openai

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// scrubString drops invalid UTF-8 and control characters other than
// newlines and tabs, then trims surrounding whitespace. Parsers emit the
// occasional form feed or NUL which some servers reject.
func scrubString(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
