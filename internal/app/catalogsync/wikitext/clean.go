package wikitext

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	wikiLinkRe   = regexp.MustCompile(`\[\[([^|\]]*\|)?([^\]]*)\]\]`)
	emphasisRe   = regexp.MustCompile(`'{2,}`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	filePrefixRe = regexp.MustCompile(`(?i)^\s*(file|image)\s*:\s*`)
	linkTargetRe = regexp.MustCompile(`\[\[([^|\]]*)`)
)

// StripMarkup removes HTML tags, bold/italic quote runs and wiki-style links
// from s, collapses whitespace, and trims. Letter case is preserved.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	s = htmlTagRe.ReplaceAllString(s, " ")

	// [[link|display]] → display, [[word]] → word.
	s = wikiLinkRe.ReplaceAllString(s, "$2")

	s = emphasisRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// ImageURL turns an image field value into an absolute URL under host.
// A [[File:NAME|...]] link contributes its target NAME, never its display
// options. A File: or Image: prefix is dropped and spaces become underscores.
// Returns "" when name has nothing left after cleanup.
func ImageURL(host, name string) string {
	if m := linkTargetRe.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	name = filePrefixRe.ReplaceAllString(StripMarkup(name), "")
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, " ", "_")

	if host != "" && !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return host + name
}
