package summarizer

import (
	"context"
)

const promptTemplate = "Summarize the following text in 3 paragraphs:\n%s."

// Params holds the generation parameters sent with every completion call.
type Params struct {
	MaxTokens        int64
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultParams returns the parameters used when nothing is overridden.
func DefaultParams() Params {
	return Params{
		MaxTokens:        500,
		Temperature:      0.7,
		TopP:             0.9,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}
