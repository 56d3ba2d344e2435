// Package metrics exposes Prometheus collectors for the persistence writer and
// the HTTP API. Each Registry is independent so tests can build their own.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg     *prometheus.Registry
	Persist *PersistMetrics
	HTTP    *HTTPMetrics
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:     reg,
		Persist: newPersistMetrics(reg),
		HTTP:    newHTTPMetrics(reg),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// PersistMetrics implements engine.Metrics.
type PersistMetrics struct {
	writes        *prometheus.CounterVec
	writeDuration prometheus.Histogram
	writeBytes    prometheus.Histogram
	coalesced     prometheus.Counter
}

func newPersistMetrics(reg prometheus.Registerer) *PersistMetrics {
	return &PersistMetrics{
		writes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lovelist_persist_writes_total",
				Help: "Disk writes issued by the persistence writer, by result",
			},
			[]string{"result"}, // "ok", "error"
		),
		writeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lovelist_persist_write_duration_milliseconds",
				Help:    "Duration of data file writes in milliseconds",
				Buckets: []float64{0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
		),
		writeBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lovelist_persist_write_bytes",
				Help:    "Size of the data file written",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
		coalesced: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lovelist_persist_coalesced_saves_total",
				Help: "Save requests superseded by a newer snapshot before being written",
			},
		),
	}
}

func (m *PersistMetrics) ObserveWrite(duration time.Duration, bytes int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(result).Inc()
	m.writeDuration.Observe(float64(duration.Microseconds()) / 1000)
	m.writeBytes.Observe(float64(bytes))
}

func (m *PersistMetrics) ObserveCoalesced() {
	m.coalesced.Inc()
}

type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lovelist_http_requests_total",
				Help: "HTTP requests served, by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lovelist_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
