// Package media decides whether uploaded bytes are an image the site will
// serve, based only on their content. Client supplied names and content types
// are never trusted.
package media

import (
	"bytes"
	"regexp"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MIME is a detected image type.
type MIME string

const (
	PNG  MIME = "image/png"
	JPEG MIME = "image/jpeg"
	GIF  MIME = "image/gif"
	WEBP MIME = "image/webp"
	SVG  MIME = "image/svg+xml"
)

// MaxUploadSize is the largest accepted upload in bytes.
const MaxUploadSize = 5 << 20

// svgSniffWindow bounds how far into the file the SVG root is looked for.
const svgSniffWindow = 8 << 10

var (
	pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegPrefix   = []byte{0xFF, 0xD8, 0xFF}

	svgRoot = regexp.MustCompile(`(?i)<svg[\s>]`)
)

// Classify returns the image type of data. The checks run in a fixed order
// and the first match wins; anything unrecognised is rejected.
func Classify(data []byte) (MIME, bool) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return PNG, true
	case bytes.HasPrefix(data, jpegPrefix):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF, true
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WEBP, true
	case looksLikeSVG(data):
		return SVG, true
	default:
		return "", false
	}
}

// Extension is the file extension stored for a detected type, without dot.
func (m MIME) Extension() string {
	switch m {
	case PNG:
		return "png"
	case JPEG:
		return "jpg"
	case GIF:
		return "gif"
	case WEBP:
		return "webp"
	case SVG:
		return "svg"
	default:
		return ""
	}
}

func looksLikeSVG(data []byte) bool {
	window := data
	if len(window) > svgSniffWindow {
		window = window[:svgSniffWindow]
	}
	text := bytes.TrimLeft(decodeText(window), " \t\r\n\f\v")
	lower := bytes.ToLower(text)

	switch {
	case bytes.HasPrefix(lower, []byte("<svg")),
		bytes.HasPrefix(lower, []byte("<?xml")),
		bytes.HasPrefix(lower, []byte("<!doctype svg")):
	default:
		return false
	}
	return svgRoot.Match(text)
}

// decodeText converts data to UTF-8, honouring and removing a UTF-8 or
// UTF-16 byte order mark. Invalid sequences become U+FFFD.
func decodeText(data []byte) []byte {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return data
	}
	return out
}
