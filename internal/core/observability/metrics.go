package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Export cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Export cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	pointOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geobuffer_point_ops_total",
			Help: "Point store mutations by operation.",
		},
		[]string{"op"},
	)

	pointsTouched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geobuffer_points_touched_total",
			Help: "Points added or removed, by operation.",
		},
		[]string{"op"},
	)

	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geobuffer_exports_total",
			Help: "Export requests by format and outcome.",
		},
		[]string{"format", "outcome"},
	)

	exportBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geobuffer_export_bytes",
			Help:    "Size of produced export files.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"format"},
	)

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geobuffer_sessions_active",
		Help: "Sessions currently held in memory.",
	})

	sessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geobuffer_sessions_evicted_total",
		Help: "Sessions dropped to stay within the session limit.",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		cacheOpTotal, cacheOpDuration, cacheResults,
		pointOps, pointsTouched,
		exportsTotal, exportBytes,
		sessionsActive, sessionsEvicted,
	}
}

// Init registers the service collectors with reg. Observations made before
// Init are kept; registering twice with the same registry is a no-op.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

// IncPointOp counts one mutation that touched n points.
func IncPointOp(op string, n int) {
	pointOps.WithLabelValues(op).Inc()
	if n > 0 {
		pointsTouched.WithLabelValues(op).Add(float64(n))
	}
}

func ObserveExport(format, outcome string, size int) {
	exportsTotal.WithLabelValues(format, outcome).Inc()
	if size > 0 {
		exportBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func SetSessionsActive(n int) { sessionsActive.Set(float64(n)) }

func IncSessionEvicted() { sessionsEvicted.Inc() }
