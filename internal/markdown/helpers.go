package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\._[](){}#|!+-=*~>` + "`"

// MaxMessageLen is the Telegram limit for a single text message, in characters.
const MaxMessageLen = 4096

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split cuts text into chunks of at most limit characters, preferring line
// boundaries. Lines longer than limit are cut at rune boundaries.
func Split(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return nil
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for line := range strings.SplitAfterSeq(text, "\n") {
		lineSize := utf8.RuneCountInString(line)

		if size+lineSize <= limit {
			current.WriteString(line)
			size += lineSize
			continue
		}

		flush()

		for lineSize > limit {
			head, tail := cutRunes(line, limit)
			chunks = append(chunks, head)
			line = tail
			lineSize -= limit
		}

		current.WriteString(line)
		size = lineSize
	}

	flush()

	return chunks
}

func cutRunes(s string, n int) (string, string) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], s[i:]
		}
		count++
	}
	return s, ""
}
