// Package slug turns arbitrary user input into identifiers that are safe to
// use as directory names, project IDs, heading anchors and upload file names.
package slug

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidRun   = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen  = regexp.MustCompile(`-+`)
	validPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	headingStrip = regexp.MustCompile(`[^\w\s-]`)
	headingSpace = regexp.MustCompile(`\s+`)

	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize lowercases raw, replaces every run of characters outside
// [a-z0-9-] with a single hyphen, collapses hyphens and trims them from
// both ends. It never fails and Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = invalidRun.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeProjectID applies the same rules as Normalize to project IDs.
func NormalizeProjectID(raw string) string {
	return Normalize(raw)
}

// Valid reports whether s is a non-empty kebab-case identifier.
func Valid(s string) bool {
	return validPattern.MatchString(s)
}

// HeadingID derives the anchor id of a heading: lowercase, punctuation
// dropped, whitespace runs turned into hyphens.
func HeadingID(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = headingStrip.ReplaceAllString(s, "")
	return headingSpace.ReplaceAllString(s, "-")
}

// FileBase sanitizes an uploaded file name into a base name without
// extension. An empty result falls back to "image".
func FileBase(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = nonAlnumRun.ReplaceAllString(strings.ToLower(base), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		return "image"
	}
	return base
}
