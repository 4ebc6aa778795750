package markdown

import (
	"fmt"
	"strings"
	"unicode"
)

// WordsPerMinute is the reading speed behind ReadingTimeText.
const WordsPerMinute = 200

// CountWords counts whitespace separated words in raw Markdown. Each CJK
// character counts as a word of its own.
func CountWords(source []byte) int {
	count := 0
	for _, field := range strings.Fields(string(source)) {
		cjk := 0
		other := false
		for _, r := range field {
			if isCJK(r) {
				cjk++
				continue
			}
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		count += cjk
		if other {
			count++
		}
	}
	return count
}

// ReadingTimeText formats an estimate such as "3 min read".
func ReadingTimeText(words int) string {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return fmt.Sprintf("%d min read", minutes)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
