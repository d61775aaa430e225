package metrics

import (
	"net/http"
	"strconv"
	"time"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const outcomeOK = "ok"

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	summaries     *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	botUpdates    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		summaries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "summaries_total",
			Help: "Summarization actions labelled by mode and outcome.",
		}, []string{"mode", "outcome"}),
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Latency of remote pipeline stages.",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Failed remote pipeline stages labelled by stage and error kind.",
		}, []string{"stage", "kind"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests labelled by route and status.",
		}, []string{"route", "status"}),
		botUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Telegram updates labelled by type.",
		}, []string{"type"}),
	}
}

func (m *Metrics) ObserveStage(stage pipeline.Stage, elapsed time.Duration, err error) {
	m.stageLatency.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(string(stage), string(domain.KindOf(err))).Inc()
	}
}

func (m *Metrics) ObserveOutcome(mode domain.Mode, kind domain.ErrorKind) {
	outcome := outcomeOK
	if kind != "" {
		outcome = string(kind)
	}
	m.summaries.WithLabelValues(string(mode), outcome).Inc()
}

func (m *Metrics) ObserveHTTPRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveBotUpdate(updateType string) {
	m.botUpdates.WithLabelValues(updateType).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
