package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeText prepares text for key comparison:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - compresses runs of whitespace into one space
//
// Punctuation, hyphens, and diacritics are preserved.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return collapseSpaces(strings.ToLower(text))
}

// NormalizeTitle applies the MediaWiki title rules that matter for matching
// responses to requests: underscores are spaces, surrounding whitespace is
// dropped, runs of spaces collapse, and the first letter is upper-cased.
func NormalizeTitle(title PageTitle) PageTitle {
	s := strings.TrimSpace(strings.ReplaceAll(string(title), "_", " "))
	if s == "" {
		return ""
	}
	s = collapseSpaces(s)
	r, size := utf8.DecodeRuneInString(s)
	return PageTitle(string(unicode.ToUpper(r)) + s[size:])
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
