package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements [CheckHooks], [CacheHooks] and [HTTPHooks] by
// recording Prometheus metrics. All metrics are registered with the
// registerer given to [NewPrometheusHooks].
type PrometheusHooks struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	checkNodes    prometheus.Histogram

	cacheLookups *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewPrometheusHooks creates the pipecheck metrics and registers them with
// reg. It panics if any metric is already registered, so call it once per
// registry.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		// checksTotal counts checks by kind and verdict
		checksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipecheck_checks_total",
			Help: "Total pipeline checks by kind and result",
		}, []string{"kind", "result"}),

		checkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipecheck_check_duration_seconds",
			Help:    "Pipeline check duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"kind", "cached"}),

		checkNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipecheck_check_nodes",
			Help:    "Number of submitted nodes per check",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		}),

		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipecheck_cache_lookups_total",
			Help: "Result cache lookups by kind and outcome",
		}, []string{"kind", "outcome"}),

		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipecheck_cache_written_bytes_total",
			Help: "Bytes written to the result cache by kind",
		}, []string{"kind"}),

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipecheck_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipecheck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "pipecheck_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}

func (h *PrometheusHooks) OnCheckStart(context.Context, string, int, int) {}

func (h *PrometheusHooks) OnCheckComplete(_ context.Context, ev CheckEvent) {
	result := "cyclic"
	switch {
	case ev.Err != nil:
		result = "error"
	case ev.IsDAG:
		result = "dag"
	}
	h.checksTotal.WithLabelValues(ev.Kind, result).Inc()
	h.checkDuration.WithLabelValues(ev.Kind, strconv.FormatBool(ev.CacheHit)).Observe(ev.Duration.Seconds())
	h.checkNodes.Observe(float64(ev.Nodes))
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, kind string) {
	h.cacheLookups.WithLabelValues(kind, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, kind string) {
	h.cacheLookups.WithLabelValues(kind, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, kind string, size int) {
	h.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {
	h.inFlight.Inc()
}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, statusCode int, duration time.Duration) {
	h.inFlight.Dec()
	h.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	h.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	_ CheckHooks = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
	_ HTTPHooks  = (*PrometheusHooks)(nil)
)
