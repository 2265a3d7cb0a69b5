// Package metrics exposes operational Prometheus metrics of the shortener process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkshrt"

// Outcomes of a shorten call.
const (
	ShortenCreated  = "created"
	ShortenConflict = "conflict"
	ShortenInvalid  = "invalid"
	ShortenError    = "error"
)

// Outcomes of a resolve call.
const (
	ResolveFound    = "found"
	ResolveNotFound = "not_found"
	ResolveError    = "error"
)

// Metrics owns a private registry, so several instances may coexist in tests.
type Metrics struct {
	registry        *prometheus.Registry
	shortenTotal    *prometheus.CounterVec
	resolveTotal    *prometheus.CounterVec
	collisionsTotal *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the metric set along with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.shortenTotal = m.RegisterCounter(
		"shorten_total",
		"Number of shorten requests by outcome",
		[]string{"outcome"},
	)
	m.resolveTotal = m.RegisterCounter(
		"resolve_total",
		"Number of resolve requests by outcome",
		[]string{"outcome"},
	)
	m.collisionsTotal = m.RegisterCounter(
		"token_collisions_total",
		"Number of generated tokens that were already taken",
		nil,
	)
	m.httpDuration = m.RegisterHistogram(
		"http_request_duration_seconds",
		"Duration of HTTP requests",
		[]string{"method", "route", "status"},
		prometheus.DefBuckets,
	)

	return m
}

// RegisterCounter register counter
func (m *Metrics) RegisterCounter(name string, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)

	m.registry.MustRegister(counter)
	return counter
}

// RegisterHistogram register histogram
func (m *Metrics) RegisterHistogram(name string, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)

	m.registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) ShortenOutcome(outcome string) {
	m.shortenTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResolveOutcome(outcome string) {
	m.resolveTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenCollision() {
	m.collisionsTotal.WithLabelValues().Inc()
}

// Registry gives access to the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPMiddleware records request durations labelled by the matched chi route pattern.
func (m *Metrics) HTTPMiddleware(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		h.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	}

	return http.HandlerFunc(fn)
}
