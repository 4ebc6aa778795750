package admin

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// Accepted layouts for ISO-8601 date strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// fieldErrors collects validation problems keyed by JSON field name.
type fieldErrors struct {
	fields map[string]string
	order  []string
}

func (f *fieldErrors) add(field, format string, args ...any) {
	if f.fields == nil {
		f.fields = map[string]string{}
	}
	if _, seen := f.fields[field]; seen {
		return
	}
	f.fields[field] = fmt.Sprintf(format, args...)
	f.order = append(f.order, field)
}

func (f *fieldErrors) length(field, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	if n < lo || n > hi {
		f.add(field, "must be between %d and %d characters", lo, hi)
	}
}

func (f *fieldErrors) maxLength(field, value string, hi int) {
	if utf8.RuneCountInString(value) > hi {
		f.add(field, "must be at most %d characters", hi)
	}
}

func (f *fieldErrors) date(field, value string) {
	if !validDate(value) {
		f.add(field, "must be an ISO-8601 date")
	}
}

func (f *fieldErrors) url(field, value string) {
	if !validURL(value) {
		f.add(field, "must be an absolute http(s) URL")
	}
}

// err returns nil when nothing was collected.
func (f *fieldErrors) err(msg string) error {
	if len(f.order) == 0 {
		return nil
	}
	b := foundationerrors.ValidationError(msg + ": " + f.order[0] + " " + f.fields[f.order[0]])
	for _, field := range f.order {
		b = b.WithContext(field, f.fields[field])
	}
	return b.Build()
}

func validDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// cleanList trims every item and drops the empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
