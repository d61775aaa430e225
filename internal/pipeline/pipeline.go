package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/ocr"
	"pdfsummarizer/internal/summarizer"
)

type Stage string

const (
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
)

// Observer receives stage timings and final outcomes. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveStage(stage Stage, elapsed time.Duration, err error)
	ObserveOutcome(mode domain.Mode, kind domain.ErrorKind)
}

type Config struct {
	Summarizer summarizer.Summarizer
	// OCR is optional. Without it the document flow fails with a
	// ConfigurationError.
	OCR      ocr.Reader
	Observer Observer
	Logger   *slog.Logger
}

// Pipeline turns raw text or a document into a summary.
type Pipeline struct {
	summarizer summarizer.Summarizer
	ocr        ocr.Reader
	observer   Observer
	log        *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Summarizer == nil {
		return nil, domain.Errorf(domain.KindConfiguration, "summarizer is required")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		summarizer: cfg.Summarizer,
		ocr:        cfg.OCR,
		observer:   cfg.Observer,
		log:        log,
	}, nil
}

// DocumentsEnabled reports whether the document flow can run.
func (p *Pipeline) DocumentsEnabled() bool {
	return p.ocr != nil
}

func (p *Pipeline) Run(ctx context.Context, req domain.Request) (domain.Outcome, error) {
	switch req.Mode {
	case domain.ModeText:
		return p.SummarizeText(ctx, req.Text)
	case domain.ModePDF:
		return p.SummarizeDocument(ctx, req.Document)
	default:
		err := domain.Errorf(domain.KindValidation, "unknown mode %q", req.Mode)
		p.observeOutcome(ctx, req.Mode, err)
		return domain.Outcome{}, err
	}
}

// SummarizeText summarizes user text. Blank input is rejected before any
// remote call.
func (p *Pipeline) SummarizeText(ctx context.Context, text string) (domain.Outcome, error) {
	outcome := domain.Outcome{Mode: domain.ModeText}

	if strings.TrimSpace(text) == "" {
		err := domain.Errorf(domain.KindValidation, "Please enter some text.")
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}

	summary, err := p.summarize(ctx, text)
	if err != nil {
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}
	outcome.Summary = summary

	p.observeOutcome(ctx, outcome.Mode, nil)
	p.log.InfoContext(ctx, "Text is summarized",
		"textLen", len(text),
		"summaryLen", len(summary))

	return outcome, nil
}

// SummarizeDocument extracts the document text and summarizes it. The
// summarizer is never called when extraction fails or yields no text.
func (p *Pipeline) SummarizeDocument(ctx context.Context, document []byte) (domain.Outcome, error) {
	outcome := domain.Outcome{Mode: domain.ModePDF}

	if p.ocr == nil {
		err := domain.Errorf(domain.KindConfiguration,
			"Document analysis is not configured. Set AZURE_FORM_RECOGNIZER_KEY and AZURE_FORM_RECOGNIZER_ENDPOINT.")
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}

	if len(document) == 0 {
		err := domain.Errorf(domain.KindValidation, "Please upload a PDF file.")
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}

	extracted, err := p.extract(ctx, document)
	if err != nil {
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}

	if strings.TrimSpace(extracted) == "" {
		err = domain.Errorf(domain.KindValidation, "No text was found in the document.")
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}
	outcome.Extracted = extracted

	summary, err := p.summarize(ctx, extracted)
	if err != nil {
		p.observeOutcome(ctx, outcome.Mode, err)
		return domain.Outcome{}, err
	}
	outcome.Summary = summary

	p.observeOutcome(ctx, outcome.Mode, nil)
	p.log.InfoContext(ctx, "Document is summarized",
		"documentBytes", len(document),
		"extractedLen", len(extracted),
		"summaryLen", len(summary))

	return outcome, nil
}

func (p *Pipeline) extract(ctx context.Context, document []byte) (string, error) {
	start := time.Now()

	text, err := p.ocr.Read(ctx, document)
	if err != nil {
		err = domain.AsError(err)
	}
	p.observeStage(StageExtract, time.Since(start), err)

	return text, err
}

func (p *Pipeline) summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()

	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		err = domain.AsError(err)
	}
	p.observeStage(StageSummarize, time.Since(start), err)

	return summary, err
}

func (p *Pipeline) observeStage(stage Stage, elapsed time.Duration, err error) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveStage(stage, elapsed, err)
}

func (p *Pipeline) observeOutcome(ctx context.Context, mode domain.Mode, err error) {
	if err != nil {
		p.log.WarnContext(ctx, "Pipeline is failed",
			"mode", mode,
			"kind", domain.KindOf(err),
			"error", err)
	}

	if p.observer == nil {
		return
	}
	p.observer.ObserveOutcome(mode, domain.KindOf(err))
}
