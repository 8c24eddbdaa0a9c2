// Package metrics exposes Prometheus collectors for the HTTP API, the
// bookshelf card pools, socket events and metadata provider calls.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"audioshelf/internal/bookshelf"
	"audioshelf/internal/events"
)

const namespace = "audioshelf"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	cardsCreated     *prometheus.CounterVec
	cardsReused      *prometheus.CounterVec
	placementFailed  prometheus.Counter
	poolResets       prometheus.Counter
	cardsDiscarded   prometheus.Counter
	eventsEmitted    *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
}

// New builds a registry with the process and Go runtime collectors plus the
// application collectors.
func New() *Metrics {
	m := &Metrics{
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
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		cardsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookshelf",
			Name:      "cards_created_total",
			Help:      "Cards constructed by the card factory.",
		}, []string{"variant"}),
		cardsReused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookshelf",
			Name:      "cards_reused_total",
			Help:      "Mount requests served from the card pool.",
		}, []string{"variant"}),
		placementFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookshelf",
			Name:      "placement_failures_total",
			Help:      "Mount requests whose shelf container was missing.",
		}),
		poolResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookshelf",
			Name:      "pool_resets_total",
			Help:      "Card pool resets.",
		}),
		cardsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookshelf",
			Name:      "cards_discarded_total",
			Help:      "Cards detached by pool resets.",
		}),
		eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Events broadcast to socket clients.",
		}, []string{"event"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "requests_total",
			Help:      "Metadata provider requests by outcome.",
		}, []string{"provider", "outcome"}),
	}
	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.cardsCreated,
		m.cardsReused,
		m.placementFailed,
		m.poolResets,
		m.cardsDiscarded,
		m.eventsEmitted,
		m.providerRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument is mux middleware recording request counts and latency per
// route template.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// ProviderRequest records one metadata provider call.
func (m *Metrics) ProviderRequest(provider, outcome string) {
	if provider == "" {
		provider = "unknown"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
}

// ShelfObserver returns a bookshelf.Observer feeding the pool collectors.
func (m *Metrics) ShelfObserver() bookshelf.Observer {
	return shelfObserver{m: m}
}

type shelfObserver struct{ m *Metrics }

func (o shelfObserver) CardCreated(variant bookshelf.Variant) {
	o.m.cardsCreated.WithLabelValues(string(variant)).Inc()
}

func (o shelfObserver) CardReused(variant bookshelf.Variant) {
	o.m.cardsReused.WithLabelValues(string(variant)).Inc()
}

func (o shelfObserver) PlacementFailed() { o.m.placementFailed.Inc() }

func (o shelfObserver) PoolReset(cards int) {
	o.m.poolResets.Inc()
	o.m.cardsDiscarded.Add(float64(cards))
}

// CountEvents wraps an emitter so every event is counted before delivery.
func (m *Metrics) CountEvents(next events.Emitter) events.Emitter {
	return countingEmitter{m: m, next: next}
}

type countingEmitter struct {
	m    *Metrics
	next events.Emitter
}

func (c countingEmitter) Emit(event events.Event, data any) {
	c.m.eventsEmitted.WithLabelValues(string(event)).Inc()
	c.next.Emit(event, data)
}

// routeTemplate keeps label cardinality bounded by using the matched mux
// template instead of the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through so /socket can upgrade behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
