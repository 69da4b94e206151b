package basis

import (
	"strings"
	"unicode"
)

// trim removes whitespace from both ends of s
func trim(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}

// startsWithSpace reports whether the first rune of s is whitespace
func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}
