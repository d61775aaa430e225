package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultAPIVersion = "2024-02-01"
	quotaErrorCode    = "insufficient_quota"
)

type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Params     Params
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// AzureSummarizer calls the Azure OpenAI completions API of a single
// deployment.
type AzureSummarizer struct {
	client     openai.Client
	deployment string
	params     Params
	log        *slog.Logger
}

// NewAzureSummarizer builds a new summarizer instance. Retries are disabled so
// every Summarize call maps to exactly one remote request.
func NewAzureSummarizer(cfg Config, log *slog.Logger) (*AzureSummarizer, error) {
	if log == nil {
		log = slog.Default()
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	deployment := strings.TrimSpace(cfg.Deployment)
	if endpoint == "" || deployment == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.Errorf(domain.KindConfiguration,
			"completion endpoint, key and deployment are required")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	params := cfg.Params
	if params == (Params{}) {
		params = DefaultParams()
	}

	opts := []option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AzureSummarizer{
		client:     openai.NewClient(opts...),
		deployment: deployment,
		params:     params,
		log:        log,
	}, nil
}

// Summarize asks the deployment for a three paragraph summary and returns the
// first choice verbatim.
func (s *AzureSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.Errorf(domain.KindValidation, "text to summarize is empty")
	}

	reqID := uuid.NewString()
	start := time.Now()

	resp, err := s.client.Completions.New(ctx, s.completionParams(BuildPrompt(text)))
	if err != nil {
		classified := classifyError(err)
		s.log.ErrorContext(ctx, "Failed to generate summary",
			"error", err,
			"reqID", reqID,
			"kind", classified.Kind,
			"deployment", s.deployment,
			"elapsedMs", time.Since(start).Milliseconds())

		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", domain.Errorf(domain.KindModel, "model returned no choices")
	}

	summary := resp.Choices[0].Text

	s.log.InfoContext(ctx, "Summary is generated",
		"reqID", reqID,
		"deployment", s.deployment,
		"inputLen", len(text),
		"summaryLen", len(summary),
		"finishReason", resp.Choices[0].FinishReason,
		"elapsedMs", time.Since(start).Milliseconds())

	return summary, nil
}

func (s *AzureSummarizer) completionParams(prompt string) openai.CompletionNewParams {
	return openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(s.deployment),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(prompt),
		},
		MaxTokens:        openai.Int(s.params.MaxTokens),
		Temperature:      openai.Float(s.params.Temperature),
		TopP:             openai.Float(s.params.TopP),
		FrequencyPenalty: openai.Float(s.params.FrequencyPenalty),
		PresencePenalty:  openai.Float(s.params.PresencePenalty),
	}
}

// BuildPrompt wraps text in the fixed summarization instruction.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

func classifyError(err error) *domain.Error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) {
			return domain.NewError(domain.KindServiceUnavailable, "summarization was canceled", err)
		}
		return domain.NewError(domain.KindServiceUnavailable, "completion service is unreachable", err)
	}

	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return domain.NewError(domain.KindAuthentication, message, err)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		if isQuotaError(apiErr) {
			return domain.NewError(domain.KindQuotaExceeded, message, err)
		}
		return domain.NewError(domain.KindRateLimited, message, err)
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return domain.NewError(domain.KindServiceUnavailable, message, err)
	default:
		return domain.NewError(domain.KindModel, message, err)
	}
}

func isQuotaError(apiErr *openai.Error) bool {
	return apiErr.Code == quotaErrorCode ||
		apiErr.Type == quotaErrorCode ||
		strings.Contains(apiErr.RawJSON(), quotaErrorCode)
}
