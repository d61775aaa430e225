package domain

import "strings"

type Mode string

const (
	ModeText Mode = "text"
	ModePDF  Mode = "pdf"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText, true
	case ModePDF:
		return ModePDF, true
	default:
		return "", false
	}
}

// Request is one user action handed to the pipeline.
type Request struct {
	Mode     Mode
	Text     string
	Document []byte
}

type Outcome struct {
	Mode      Mode
	Extracted string
	Summary   string
}

// Paragraphs splits the summary on newlines and drops blank lines.
func (o Outcome) Paragraphs() []string {
	return Paragraphs(o.Summary)
}

func Paragraphs(summary string) []string {
	var paragraphs []string

	for line := range strings.SplitSeq(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, line)
	}

	return paragraphs
}

type UserSettings struct {
	UserID int64
	Mode   Mode
}

const pdfMagic = "%PDF-"

// LooksLikePDF reports whether data starts with the PDF header.
func LooksLikePDF(data []byte) bool {
	return len(data) >= len(pdfMagic) && string(data[:len(pdfMagic)]) == pdfMagic
}
