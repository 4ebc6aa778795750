package slug

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var shape = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Hello,   World!  ", "hello-world"},
		{"already-kebab", "already-kebab"},
		{"--leading--and--trailing--", "leading-and-trailing"},
		{"Go 1.22 & Generics", "go-1-22-generics"},
		{"Ünïcödé Tïtle", "n-c-d-t-tle"},
		{"!!!", ""},
		{"", ""},
		{"a_b_c", "a-b-c"},
		{"x---y", "x-y"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotentAndWellShaped(t *testing.T) {
	inputs := []string{
		"", " ", "-", "A", "Hello World", "日本語のタイトル", "émoji 🎉 post",
		"--x--", "a - b - c", "tab\tseparated\nlines", "MiXeD_Case-And.Dots",
		strings.Repeat("ab!", 50),
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "not idempotent for %q", in)
		assert.Regexp(t, shape, once)
		assert.False(t, strings.HasPrefix(once, "-"), "leading hyphen for %q", in)
		assert.False(t, strings.HasSuffix(once, "-"), "trailing hyphen for %q", in)
		assert.NotContains(t, once, "--", "doubled hyphen for %q", in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("hello-world"))
	assert.True(t, Valid("a1"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("-a"))
	assert.False(t, Valid("a--b"))
	assert.False(t, Valid("Hello"))
}

func TestHeadingID(t *testing.T) {
	assert.Equal(t, "getting-started", HeadingID("Getting Started"))
	assert.Equal(t, "whats-new-in-v2", HeadingID("What's new in v2?"))
	assert.Equal(t, "a-b_c", HeadingID("a   b_c"))
	assert.Equal(t, "code-blocks", HeadingID("  Code blocks  "))
}

func TestFileBase(t *testing.T) {
	assert.Equal(t, "my-photo", FileBase("My Photo.PNG"))
	assert.Equal(t, "diagram-v2-final", FileBase("diagram v2.final.svg"))
	assert.Equal(t, "image", FileBase("...."))
	assert.Equal(t, "image", FileBase(""))
	assert.Equal(t, "evil", FileBase("../../evil.png"))
	assert.Equal(t, "shot", FileBase(`C:\Users\me\shot.jpg`))
}
