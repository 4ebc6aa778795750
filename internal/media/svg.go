package media

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

var svgDenylist = []struct {
	reason  string
	pattern *regexp.Regexp
}{
	{"script element", regexp.MustCompile(`(?i)<script`)},
	{"foreignObject element", regexp.MustCompile(`(?i)<foreignobject`)},
	{"iframe element", regexp.MustCompile(`(?i)<iframe`)},
	{"event handler attribute", regexp.MustCompile(`(?i)\bon\w+\s*=`)},
	{"javascript URL", regexp.MustCompile(`(?i)\b(?:xlink:)?href\s*=\s*["']?\s*javascript:`)},
}

var blockedElements = map[string]bool{
	"script":        true,
	"foreignobject": true,
	"iframe":        true,
}

// CheckSVG rejects SVG documents that can execute script. The whole text is
// scanned, first with a pattern denylist and then token by token so that
// entity-encoded attribute values are caught as well. Nothing is repaired:
// any hit rejects the file.
func CheckSVG(data []byte) error {
	text := decodeText(data)
	for _, rule := range svgDenylist {
		if rule.pattern.Match(text) {
			return unsafeSVG(rule.reason)
		}
	}
	if reason := scanTokens(text); reason != "" {
		return unsafeSVG(reason)
	}
	return nil
}

func scanTokens(text []byte) string {
	z := html.NewTokenizer(bytes.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return ""
			}
			// Malformed markup the tokenizer cannot follow is not trusted.
			return "unparseable markup"
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if blockedElements[strings.ToLower(tok.Data)] {
				return tok.Data + " element"
			}
			for _, attr := range tok.Attr {
				key := strings.ToLower(attr.Key)
				if attr.Namespace != "" {
					key = strings.ToLower(attr.Namespace) + ":" + key
				}
				if strings.HasPrefix(key, "on") {
					return "event handler attribute"
				}
				if (key == "href" || key == "xlink:href") && isJavascriptURL(attr.Val) {
					return "javascript URL"
				}
			}
		}
	}
}

// isJavascriptURL mirrors how browsers ignore embedded whitespace and
// control characters in a URL scheme.
func isJavascriptURL(v string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	return strings.HasPrefix(strings.ToLower(cleaned), "javascript:")
}

func unsafeSVG(reason string) error {
	return foundationerrors.ValidationError("unsafe SVG upload rejected").
		WithContext("reason", reason).
		Build()
}
