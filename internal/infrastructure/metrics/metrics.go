package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/fimp2ha/internal/correlator"
	"github.com/nerrad567/fimp2ha/internal/discovery"
)

const namespace = "fimp2ha"

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pending         prometheus.Gauge

	cycles     *prometheus.CounterVec
	entities   prometheus.Gauge
	removed    prometheus.Counter
	unanswered prometheus.Counter
	lastCycle  prometheus.Gauge

	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Correlated FIMP requests by request type and outcome.",
		}, []string{"type", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from publish to response or timeout.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_listeners",
			Help:      "Listeners registered after the last finished request.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_cycles_total",
			Help:      "Discovery cycles by status.",
		}, []string{"status"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovery_entities",
			Help:      "Entities published by the last discovery cycle.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_removed_total",
			Help:      "Stale entities removed from Home Assistant.",
		}),
		unanswered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_unanswered_total",
			Help:      "Device parameter queries that timed out.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovery_last_cycle_timestamp_seconds",
			Help:      "Start time of the last discovery cycle.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status API requests by route, method and status.",
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		m.requests, m.requestDuration, m.pending,
		m.cycles, m.entities, m.removed, m.unanswered, m.lastCycle,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest implements correlator.Observer.
func (m *Metrics) ObserveRequest(stats correlator.RequestStats) {
	outcome := string(stats.Outcome)
	m.requests.WithLabelValues(stats.RequestType, outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(stats.Duration.Seconds())
	m.pending.Set(float64(stats.Pending))
}

// ObserveCycle implements discovery.CycleObserver.
func (m *Metrics) ObserveCycle(res *discovery.Result, err error) {
	m.lastCycle.Set(float64(res.StartedAt.Unix()))
	m.unanswered.Add(float64(res.Unanswered))
	if err != nil {
		m.cycles.WithLabelValues("error").Inc()
		return
	}
	m.cycles.WithLabelValues("ok").Inc()
	m.entities.Set(float64(res.Entities))
	m.removed.Add(float64(res.Removed))
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
