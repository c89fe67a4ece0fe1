package css

import (
	"regexp"
	"strings"
)

// ReservedChars lists punctuation which has to be escaped when it appears in
// a class name.
const ReservedChars = "!\"#$%&'()*+,-./:;<=>?@[]\\^`{}|~"

var (
	extensionPattern  = regexp.MustCompile(`\.[^.]+$`)
	// Unicode space separators and BOM count as whitespace too
	whitespacePattern = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)
)

// StripExtension removes trailing extension (last dot and everything after
// it) from the identifier.
func StripExtension(id string) string {
	return extensionPattern.ReplaceAllString(id, "")
}

// EscapeReserved prefixes every reserved punctuation character with a
// backslash.
func EscapeReserved(s string) string {
	if !strings.ContainsAny(s, ReservedChars) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(ReservedChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ClassName turns image identifier (usually file base name) into a class
// selector fragment: extension is removed, reserved characters are escaped
// and runs of whitespace become a single underscore. Result is always legal
// to use after a '.' in a selector.
func ClassName(id string) string {
	return whitespacePattern.ReplaceAllString(EscapeReserved(StripExtension(id)), "_")
}
