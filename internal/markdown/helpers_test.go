package markdown

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "hello world", "hello world"},
		{"Punctuation", "Hi. (ok) - done!", `Hi\. \(ok\) \- done\!`},
		{"Backslash", `a\b`, `a\\b`},
		{"Markup", "*bold* _it_ `code`", "\\*bold\\* \\_it\\_ \\`code\\`"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := EscapeV2(test.input); got != test.want {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"Empty", "", 10, nil},
		{"Fits", "a\nb\n", 10, []string{"a\nb\n"}},
		{"Line boundaries", "aaa\nbbb\nccc\n", 8, []string{"aaa\nbbb\n", "ccc\n"}},
		{"Long line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"Runes", "ééééé", 2, []string{"éé", "éé", "é"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Split(test.text, test.limit)
			if !slices.Equal(got, test.want) {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestSplitKeepsEveryCharacter(t *testing.T) {
	var b strings.Builder
	for i := range 500 {
		b.WriteString(strings.Repeat("x", i%37))
		b.WriteString("\n")
	}
	text := b.String()

	chunks := Split(text, 100)
	if strings.Join(chunks, "") != text {
		t.Fatalf("expected chunks to reassemble the original text")
	}
	for _, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 100 {
			t.Fatalf("chunk exceeds limit: %d", n)
		}
	}
}
