package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultAPIVersion   = "2023-07-31"
	defaultPollInterval = time.Second
	defaultTimeout      = 2 * time.Minute

	readModelID = "prebuilt-read"
	keyHeader   = "Ocp-Apim-Subscription-Key"

	statusSucceeded = "succeeded"
	statusFailed    = "failed"

	maxErrorBodyBytes = 64 << 10
)

type Config struct {
	Endpoint     string
	Key          string
	APIVersion   string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// ReadClient runs the hosted prebuilt-read analysis and waits for its result.
type ReadClient struct {
	analyzeURL   string
	key          string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	log          *slog.Logger
}

type operation struct {
	Status        string         `json:"status"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult"`
	Error         *serviceError  `json:"error"`
}

type errorEnvelope struct {
	Error *serviceError `json:"error"`
}

type serviceError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	InnerError *serviceError  `json:"innererror"`
	Details    []serviceError `json:"details"`
}

func (e *serviceError) String() string {
	if e == nil {
		return ""
	}

	parts := []string{}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if inner := e.InnerError.String(); inner != "" {
		parts = append(parts, inner)
	}

	return strings.Join(parts, ": ")
}

func NewReadClient(cfg Config, log *slog.Logger) (*ReadClient, error) {
	if log == nil {
		log = slog.Default()
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, domain.Errorf(domain.KindConfiguration, "document analysis endpoint and key are required")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	analyzeURL, err := url.Parse(fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze", endpoint, readModelID))
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "invalid document analysis endpoint", err)
	}
	analyzeURL.RawQuery = url.Values{"api-version": {apiVersion}}.Encode()

	c := &ReadClient{
		analyzeURL:   analyzeURL.String(),
		key:          cfg.Key,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		httpClient:   cfg.HTTPClient,
		log:          log,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 45 * time.Second}
	}

	return c, nil
}

// Read submits the document, polls the analysis until it finishes and returns
// the extracted text. The whole exchange is bounded by the configured timeout.
func (c *ReadClient) Read(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", domain.Errorf(domain.KindValidation, "document is empty")
	}

	reqID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.InfoContext(ctx, "Document analysis is submitted",
		"reqID", reqID,
		"bytes", len(document))

	operationURL, err := c.submit(ctx, document)
	if err != nil {
		return "", c.fail(ctx, reqID, start, err)
	}

	result, polls, err := c.poll(ctx, operationURL)
	if err != nil {
		return "", c.fail(ctx, reqID, start, err)
	}

	text := result.Text()

	c.log.InfoContext(ctx, "Document analysis is done",
		"reqID", reqID,
		"pages", len(result.Pages),
		"lines", result.LineCount(),
		"textLen", len(text),
		"polls", polls,
		"elapsedMs", time.Since(start).Milliseconds())

	return text, nil
}

func (c *ReadClient) submit(ctx context.Context, document []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL, bytes.NewReader(document))
	if err != nil {
		return "", domain.NewError(domain.KindConfiguration, "build analyze request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(keyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return "", statusError(resp, true)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", domain.Errorf(domain.KindServiceUnavailable, "analyze response has no Operation-Location")
	}

	return operationURL, nil
}

func (c *ReadClient) poll(ctx context.Context, operationURL string) (*AnalyzeResult, int, error) {
	polls := 0

	for {
		polls++

		op, retryAfter, err := c.getOperation(ctx, operationURL)
		if err != nil {
			return nil, polls, err
		}

		switch strings.ToLower(op.Status) {
		case statusSucceeded:
			if op.AnalyzeResult == nil {
				return nil, polls, domain.Errorf(domain.KindAnalysis, "analysis succeeded without a result")
			}
			return op.AnalyzeResult, polls, nil
		case statusFailed:
			message := op.Error.String()
			if message == "" {
				message = "document analysis failed"
			}
			return nil, polls, domain.Errorf(domain.KindAnalysis, "%s", message)
		}

		wait := c.pollInterval
		if retryAfter > 0 {
			wait = retryAfter
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, polls, transportError(ctx, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *ReadClient) getOperation(ctx context.Context, operationURL string) (*operation, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, 0, domain.NewError(domain.KindServiceUnavailable, "build poll request", err)
	}
	req.Header.Set(keyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, 0, statusError(resp, false)
	}

	var op operation
	if err = json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, 0, domain.NewError(domain.KindServiceUnavailable, "decode analysis status", err)
	}

	return &op, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func (c *ReadClient) fail(ctx context.Context, reqID string, start time.Time, err error) error {
	e := domain.AsError(err)

	c.log.ErrorContext(ctx, "Failed to analyze document",
		"error", err,
		"reqID", reqID,
		"kind", e.Kind,
		"elapsedMs", time.Since(start).Milliseconds())

	return e
}

func statusError(resp *http.Response, submit bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	message := http.StatusText(resp.StatusCode)
	var envelope errorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		if s := envelope.Error.String(); s != "" {
			message = s
		}
	}

	cause := fmt.Errorf("status %d", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewError(domain.KindAuthentication, message, cause)
	case resp.StatusCode == http.StatusNotFound && submit:
		return domain.NewError(domain.KindConfiguration, "document analysis endpoint not found: "+message, cause)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewError(domain.KindServiceUnavailable, message, cause)
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return domain.NewError(domain.KindAnalysis, message, cause)
	default:
		return domain.NewError(domain.KindServiceUnavailable, "unexpected status: "+message, cause)
	}
}

func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewError(domain.KindServiceUnavailable, "timed out waiting for document analysis", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.NewError(domain.KindServiceUnavailable, "document analysis was canceled", err)
	default:
		return domain.NewError(domain.KindServiceUnavailable, "document analysis service is unreachable", err)
	}
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}

	return 0
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes))
	_ = body.Close()
}
