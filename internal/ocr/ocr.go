package ocr

import (
	"context"
	"slices"
	"strings"
)

// Reader extracts plain text from a document.
type Reader interface {
	Read(ctx context.Context, document []byte) (string, error)
}

type AnalyzeResult struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	PageNumber int    `json:"pageNumber"`
	Lines      []Line `json:"lines"`
}

type Line struct {
	Content string `json:"content"`
}

// Text joins every line in reading order, pages first and then lines, with a
// newline after each line.
func (r AnalyzeResult) Text() string {
	pages := slices.Clone(r.Pages)
	slices.SortStableFunc(pages, func(a, b Page) int {
		return a.PageNumber - b.PageNumber
	})

	var b strings.Builder
	for _, page := range pages {
		for _, line := range page.Lines {
			b.WriteString(line.Content)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func (r AnalyzeResult) LineCount() int {
	n := 0
	for _, page := range r.Pages {
		n += len(page.Lines)
	}
	return n
}
