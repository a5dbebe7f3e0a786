package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nutrilog"

// Recorder owns a private registry so tests and multiple apps in one
// process never collide on collector names.
type Recorder struct {
	registry *prometheus.Registry

	httpInFlight     prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	reportsDegraded  prometheus.Counter
	ledgerWrites     *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	analyzerOutcomes *prometheus.CounterVec
	authFailures     *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"method", "route"}),
		reportsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_degraded_total",
			Help:      "Daily reports served with default values because the ledger could not be read.",
		}),
		ledgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "writes_total",
			Help:      "Ledger writes by kind and result.",
		}, []string{"kind", "success"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Ledger events handed to the broker by kind and result.",
		}, []string{"kind", "success"}),
		analyzerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "requests_total",
			Help:      "Food photo analyses by outcome.",
		}, []string{"outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected client tokens by reason.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"route"}),
	}

	recorder.registry.MustRegister(
		recorder.httpInFlight,
		recorder.httpRequests,
		recorder.httpDuration,
		recorder.reportsDegraded,
		recorder.ledgerWrites,
		recorder.eventsPublished,
		recorder.analyzerOutcomes,
		recorder.authFailures,
		recorder.rateLimited,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return recorder
}

// Handler exposes the registry in the Prometheus text format.
func (recorder *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(recorder.registry, promhttp.HandlerOpts{})
}

func (recorder *Recorder) RequestStarted() {
	recorder.httpInFlight.Inc()
}

func (recorder *Recorder) RequestFinished(method string, route string, status int, duration time.Duration) {
	recorder.httpInFlight.Dec()
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	recorder.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	recorder.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (recorder *Recorder) ReportDegraded() {
	recorder.reportsDegraded.Inc()
}

func (recorder *Recorder) LedgerWrite(kind string, succeeded bool) {
	recorder.ledgerWrites.WithLabelValues(kind, strconv.FormatBool(succeeded)).Inc()
}

func (recorder *Recorder) EventPublished(kind string, succeeded bool) {
	recorder.eventsPublished.WithLabelValues(kind, strconv.FormatBool(succeeded)).Inc()
}

func (recorder *Recorder) AnalyzerOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	recorder.analyzerOutcomes.WithLabelValues(outcome).Inc()
}

func (recorder *Recorder) AuthFailed(reason string) {
	recorder.authFailures.WithLabelValues(reason).Inc()
}

func (recorder *Recorder) RateLimited(route string) {
	recorder.rateLimited.WithLabelValues(route).Inc()
}
