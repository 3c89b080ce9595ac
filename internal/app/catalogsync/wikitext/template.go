// Package wikitext extracts catalog records from MediaWiki page source.
// Everything here is a pure function of its input text.
package wikitext

import (
	"regexp"
	"strings"
)

// FieldMap holds a template's named parameters. Keys are lower-cased and
// trimmed; values are trimmed but otherwise raw.
type FieldMap map[string]string

// TemplateBlock is one {{casting ...}} occurrence in page source.
type TemplateBlock struct {
	// Body is the text between the template name and the closing braces.
	Body   string
	Fields FieldMap
	// Offset is the byte position of the opening braces in the page source.
	Offset int
}

var (
	castingRe       = regexp.MustCompile(`(?is)\{\{\s*casting\b(.*?)\}\}`)
	castingOpenerRe = regexp.MustCompile(`(?i)\{\{\s*casting\b`)
	packOpenerRe    = regexp.MustCompile(`(?i)\{\{\s*(?:multipack|pack|\d+-pack)\b`)
)

// Parse returns the casting blocks of content in source order. Each block
// runs from its opener to the first closing "}}"; nested templates are
// not balanced.
func Parse(content string) []TemplateBlock {
	matches := castingRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]TemplateBlock, 0, len(matches))
	for _, m := range matches {
		body := content[m[2]:m[3]]
		blocks = append(blocks, TemplateBlock{
			Body:   body,
			Fields: SplitFields(body),
			Offset: m[0],
		})
	}
	return blocks
}

// SplitFields splits a template body into named parameters. Segments are
// separated by "|" outside [[...]] links, and each segment is split on its
// first "=" only. Segments without "=" are positional and ignored. When a
// key repeats, the last value wins.
func SplitFields(body string) FieldMap {
	fields := make(FieldMap)
	for _, seg := range splitSegments(body) {
		key, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

func splitSegments(body string) []string {
	var (
		segs  []string
		depth int
		start int
	)
	for i := 0; i < len(body); i++ {
		switch {
		case strings.HasPrefix(body[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(body[i:], "]]") && depth > 0:
			depth--
			i++
		case body[i] == '|' && depth == 0:
			segs = append(segs, body[start:i])
			start = i + 1
		}
	}
	return append(segs, body[start:])
}

// packHeader returns the field map of the pack template opening at loc: the
// text after the opener up to the next "{{" or "}}", whichever comes first.
func packHeader(content string, loc []int) FieldMap {
	rest := content[loc[1]:]
	end := len(rest)
	if i := strings.Index(rest, "{{"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(rest, "}}"); i >= 0 && i < end {
		end = i
	}
	return SplitFields(rest[:end])
}
