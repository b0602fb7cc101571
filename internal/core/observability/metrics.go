// Package observability holds the service's Prometheus collectors.
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
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"method", "route", "status"},
	)

	locateResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locate_results_total",
			Help: "Point-location answers by kind.",
		},
		[]string{"kind"},
	)

	locateDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "locate_duration_seconds",
			Help:    "Time spent answering one locate call (single or batch).",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
		},
	)

	builds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subdivision_builds_total",
			Help: "Slab structure builds by result.",
		},
		[]string{"result"},
	)

	buildDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subdivision_build_duration_seconds",
			Help:    "Time spent preprocessing a subdivision.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 12),
		},
	)

	subdivisionsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subdivisions_loaded",
			Help: "Subdivisions currently served.",
		},
	)

	storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Document store operations by result.",
		},
		[]string{"op", "result"},
	)

	storeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Latency of document store operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	hotSlabs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hot_slabs",
			Help: "Slabs with a tracked hotness score.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "locator_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		locateResults, locateDurationSeconds,
		builds, buildDurationSeconds, subdivisionsLoaded,
		storeOps, storeDurationSeconds,
		hotSlabs, buildInfo,
	}
}

func init() {
	Init(prometheus.DefaultRegisterer, true)
}

// Init registers the collectors with reg. Registering twice with the same
// registry is a no-op.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func IncLocate(kind string) {
	locateResults.WithLabelValues(kind).Inc()
}

func ObserveLocateDuration(durationSeconds float64) {
	locateDurationSeconds.Observe(durationSeconds)
}

func ObserveBuild(err error, durationSeconds float64) {
	if err != nil {
		builds.WithLabelValues("error").Inc()
		return
	}
	builds.WithLabelValues("ok").Inc()
	buildDurationSeconds.Observe(durationSeconds)
}

func SetSubdivisionsLoaded(n int) {
	subdivisionsLoaded.Set(float64(n))
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOps.WithLabelValues(op, result).Inc()
	storeDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func SetHotSlabs(n int) {
	hotSlabs.Set(float64(n))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
