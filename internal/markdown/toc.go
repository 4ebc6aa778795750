package markdown

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/slug"
)

// TOCEntry is one heading in a post's table of contents.
type TOCEntry struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

var (
	atxHeading   = regexp.MustCompile(`^ {0,3}(#{2,6})[ \t]+(.+?)[ \t]*$`)
	closingHash  = regexp.MustCompile(`[ \t]+#+$`)
	fenceOpening = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
	inlineLink   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
)

// headingText reduces inline links and images in raw heading source to their
// text.
func headingText(raw string) string {
	return strings.TrimSpace(inlineLink.ReplaceAllString(raw, "$1"))
}

// headingID is the anchor shared by the TOC and the rendered heading.
func headingID(raw string) string {
	if id := slug.HeadingID(headingText(raw)); id != "" {
		return id
	}
	return "heading"
}

// ExtractTOC scans raw Markdown for ATX headings of level 2 through 6.
// Headings inside fenced code blocks are ignored.
func ExtractTOC(source []byte) []TOCEntry {
	entries := []TOCEntry{}
	var fence string

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), len(source)+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := fenceOpening.FindStringSubmatch(line); m != nil {
			switch {
			case fence == "":
				fence = m[1]
			case m[1][0] == fence[0] && len(m[1]) >= len(fence):
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}

		m := atxHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(closingHash.ReplaceAllString(m[2], ""))
		if text == "" || strings.Trim(text, "#") == "" {
			continue
		}
		entries = append(entries, TOCEntry{Level: len(m[1]), Text: headingText(text), ID: headingID(text)})
	}
	return entries
}
