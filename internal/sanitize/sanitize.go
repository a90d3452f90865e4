// Package sanitize normalizes user-supplied circuit names before they are
// used as store keys and archive entries.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxNameLength is the maximum allowed length for circuit names.
const MaxNameLength = 64

var reRepeatedSeparators = regexp.MustCompile(`([-_.])[-_.]+`)

// CircuitName keeps letters, digits, '-', '_' and '.', turns whitespace
// runs into a single '-', collapses runs of separators to their first
// character, trims separators from both ends and truncates to
// MaxNameLength. It returns "" when nothing usable remains.
func CircuitName(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}

	s := reRepeatedSeparators.ReplaceAllString(b.String(), "$1")
	s = strings.Trim(s, "-_.")
	if len(s) > MaxNameLength {
		s = strings.TrimRight(s[:MaxNameLength], "-_.")
	}
	return s
}
