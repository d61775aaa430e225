package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/metrics"
	"pdfsummarizer/internal/pipeline"
)

type fakeSummarizer struct {
	mu     sync.Mutex
	calls  int
	inputs []string
	err    error
}

func (s *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.inputs = append(s.inputs, text)
	if s.err != nil {
		return "", s.err
	}

	return "First.\n\nSecond.\nThird.", nil
}

func (s *fakeSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type fakeReader struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (r *fakeReader) Read(_ context.Context, _ []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	return r.text, r.err
}

func (r *fakeReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

type testEnv struct {
	server     *httptest.Server
	summarizer *fakeSummarizer
	reader     *fakeReader
}

func newTestEnv(t *testing.T, cfg Config, sum *fakeSummarizer, reader *fakeReader) *testEnv {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	m := metrics.New()

	pcfg := pipeline.Config{Summarizer: sum, Observer: m, Logger: log}
	if reader != nil {
		pcfg.OCR = reader
	}
	p, err := pipeline.New(pcfg)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 100
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 100
	}

	srv := httptest.NewServer(New(cfg, p, m, log).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, summarizer: sum, reader: reader}
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func postDocument(t *testing.T, url string, document []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(documentField, "doc.pdf")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(document); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("failed to post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestSummarizeText(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeSummarizer{}, nil)

	resp := postJSON(t, env.server.URL+"/v1/summaries/text", `{"text":"Some long text"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	body := decode[summaryResponse](t, resp)
	if body.Mode != domain.ModeText {
		t.Fatalf("expected text mode, got %q", body.Mode)
	}
	if body.Extracted != "" {
		t.Fatalf("expected no extracted text, got %q", body.Extracted)
	}
	if len(body.Paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %q", body.Paragraphs)
	}
	env.summarizer.mu.Lock()
	inputs := env.summarizer.inputs
	env.summarizer.mu.Unlock()
	if len(inputs) != 1 || inputs[0] != "Some long text" {
		t.Fatalf("expected summarizer to receive the text once, got %q", inputs)
	}
}

func TestSummarizeTextFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   domain.ErrorKind
		wantCalls  int
	}{
		{"Blank text", `{"text":"   "}`, nil, http.StatusBadRequest, domain.KindValidation, 0},
		{"Malformed JSON", `{"text":`, nil, http.StatusBadRequest, domain.KindValidation, 0},
		{"Rate limited upstream", `{"text":"x"}`, domain.Errorf(domain.KindRateLimited, "slow"), http.StatusTooManyRequests, domain.KindRateLimited, 1},
		{"Quota exceeded", `{"text":"x"}`, domain.Errorf(domain.KindQuotaExceeded, "quota"), http.StatusTooManyRequests, domain.KindQuotaExceeded, 1},
		{"Bad credentials", `{"text":"x"}`, domain.Errorf(domain.KindAuthentication, "denied"), http.StatusBadGateway, domain.KindAuthentication, 1},
		{"Model error", `{"text":"x"}`, domain.Errorf(domain.KindModel, "filtered"), http.StatusBadGateway, domain.KindModel, 1},
		{"Service down", `{"text":"x"}`, domain.Errorf(domain.KindServiceUnavailable, "down"), http.StatusServiceUnavailable, domain.KindServiceUnavailable, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t, Config{}, &fakeSummarizer{err: test.err}, nil)

			resp := postJSON(t, env.server.URL+"/v1/summaries/text", test.body)
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("expected %d, got %d", test.wantStatus, resp.StatusCode)
			}

			body := decode[errorResponse](t, resp)
			if body.Error.Kind != test.wantKind {
				t.Fatalf("expected %s, got %s", test.wantKind, body.Error.Kind)
			}
			if body.Error.Message == "" {
				t.Fatalf("expected error message")
			}
			if env.summarizer.callCount() != test.wantCalls {
				t.Fatalf("expected %d summarizer calls, got %d", test.wantCalls, env.summarizer.callCount())
			}
		})
	}
}

func TestSummarizeDocument(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeSummarizer{}, &fakeReader{text: "Page one\nPage two\n"})

	resp := postDocument(t, env.server.URL+"/v1/summaries/document", []byte("%PDF-1.7 body"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decode[summaryResponse](t, resp)
	if body.Mode != domain.ModePDF {
		t.Fatalf("expected pdf mode, got %q", body.Mode)
	}
	if body.Extracted != "Page one\nPage two\n" {
		t.Fatalf("unexpected extracted text %q", body.Extracted)
	}
	if env.reader.callCount() != 1 || env.summarizer.callCount() != 1 {
		t.Fatalf("expected one extraction and one summary, got %d and %d", env.reader.callCount(), env.summarizer.callCount())
	}
}

func TestSummarizeDocumentFailures(t *testing.T) {
	tests := []struct {
		name       string
		reader     *fakeReader
		document   []byte
		wantStatus int
		wantKind   domain.ErrorKind
		wantReads  int
	}{
		{"OCR not configured", nil, []byte("%PDF-1.7"), http.StatusServiceUnavailable, domain.KindConfiguration, 0},
		{"Not a PDF", &fakeReader{text: "x"}, []byte("plain text"), http.StatusBadRequest, domain.KindValidation, 0},
		{"Too large", &fakeReader{text: "x"}, []byte("%PDF-" + strings.Repeat("a", 64)), http.StatusRequestEntityTooLarge, domain.KindValidation, 0},
		{"Analysis failed", &fakeReader{err: domain.Errorf(domain.KindAnalysis, "corrupt")}, []byte("%PDF-1.7"), http.StatusUnprocessableEntity, domain.KindAnalysis, 1},
		{"OCR timeout", &fakeReader{err: domain.Errorf(domain.KindServiceUnavailable, "timed out")}, []byte("%PDF-1.7"), http.StatusServiceUnavailable, domain.KindServiceUnavailable, 1},
		{"Nothing extracted", &fakeReader{text: " \n "}, []byte("%PDF-1.7"), http.StatusBadRequest, domain.KindValidation, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t, Config{MaxDocumentBytes: 32}, &fakeSummarizer{}, test.reader)

			resp := postDocument(t, env.server.URL+"/v1/summaries/document", test.document)
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("expected %d, got %d", test.wantStatus, resp.StatusCode)
			}

			body := decode[errorResponse](t, resp)
			if body.Error.Kind != test.wantKind {
				t.Fatalf("expected %s, got %s", test.wantKind, body.Error.Kind)
			}
			if env.summarizer.callCount() != 0 {
				t.Fatalf("expected summarizer not to be called, got %d calls", env.summarizer.callCount())
			}
			if test.reader != nil && test.reader.callCount() != test.wantReads {
				t.Fatalf("expected %d reads, got %d", test.wantReads, test.reader.callCount())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{RateLimit: 0.001, RateBurst: 2}, &fakeSummarizer{}, nil)

	for i := range 2 {
		resp := postJSON(t, env.server.URL+"/v1/summaries/text", `{"text":"x"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	resp := postJSON(t, env.server.URL+"/v1/summaries/text", `{"text":"x"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if body := decode[errorResponse](t, resp); body.Error.Kind != domain.KindRateLimited {
		t.Fatalf("expected %s, got %s", domain.KindRateLimited, body.Error.Kind)
	}
	if env.summarizer.callCount() != 2 {
		t.Fatalf("expected 2 summarizer calls, got %d", env.summarizer.callCount())
	}

	health, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to get health: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected health to bypass the limiter, got %d", health.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeSummarizer{}, &fakeReader{text: "x"})

	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to get health: %v", err)
	}
	defer resp.Body.Close()

	health := decode[healthResponse](t, resp)
	if health.Status != "ok" || !health.OCR {
		t.Fatalf("unexpected health %+v", health)
	}

	postJSON(t, env.server.URL+"/v1/summaries/text", `{"text":"x"}`)

	resp, err = http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), `summaries_total{mode="text",outcome="ok"} 1`) {
		t.Fatalf("expected successful text summary to be counted, got:\n%s", buf.String())
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeSummarizer{}, nil)

	id := "5d1f4a8e-0f55-4c3f-9d7e-0a5c2b0c4e11"
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set(requestIDHeader, id)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to get health: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(requestIDHeader); got != id {
		t.Fatalf("expected request id %q, got %q", id, got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.ErrorKind
		want int
	}{
		{domain.KindValidation, http.StatusBadRequest},
		{domain.KindConfiguration, http.StatusServiceUnavailable},
		{domain.KindServiceUnavailable, http.StatusServiceUnavailable},
		{domain.KindAuthentication, http.StatusBadGateway},
		{domain.KindAnalysis, http.StatusUnprocessableEntity},
		{domain.KindRateLimited, http.StatusTooManyRequests},
		{domain.KindQuotaExceeded, http.StatusTooManyRequests},
		{domain.KindModel, http.StatusBadGateway},
	}

	for _, test := range tests {
		t.Run(string(test.kind), func(t *testing.T) {
			if got := statusFor(test.kind); got != test.want {
				t.Fatalf("expected %d, got %d", test.want, got)
			}
		})
	}
}
