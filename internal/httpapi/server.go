package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute

	// Document requests wait for OCR polling and the completion call.
	writeTimeout = 5 * time.Minute

	defaultMaxDocumentBytes = 20 << 20
	multipartOverheadBytes  = 1 << 20
)

// Pipeline is the summarization entry point the API exposes.
type Pipeline interface {
	SummarizeText(ctx context.Context, text string) (domain.Outcome, error)
	SummarizeDocument(ctx context.Context, document []byte) (domain.Outcome, error)
	DocumentsEnabled() bool
}

type Config struct {
	Addr             string
	MaxDocumentBytes int64
	RateLimit        float64
	RateBurst        int
}

type Server struct {
	srv              *http.Server
	pipeline         Pipeline
	metrics          *metrics.Metrics
	limiter          *IPRateLimiter
	maxDocumentBytes int64
	log              *slog.Logger
}

func New(cfg Config, pipeline Pipeline, m *metrics.Metrics, log *slog.Logger) *Server {
	s := &Server{
		pipeline:         pipeline,
		metrics:          m,
		limiter:          NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		maxDocumentBytes: cfg.MaxDocumentBytes,
		log:              log,
	}
	if s.maxDocumentBytes <= 0 {
		s.maxDocumentBytes = defaultMaxDocumentBytes
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1/summaries", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/text", s.handleText)
		r.Post("/document", s.handleDocument)
	})

	return r
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not an
// error.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server is listening",
		"addr", s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.srv.SetKeepAlivesEnabled(false)
	return s.srv.Shutdown(ctx)
}
