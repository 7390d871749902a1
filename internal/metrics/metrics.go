// Package metrics exposes conversion and server counters in Prometheus
// format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookvoice"

var (
	// chunksTotal counts synthesized chunks by engine and outcome.
	chunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of text chunks sent to a speech engine",
		},
		[]string{"engine", "status"}, // status: success, error
	)

	// synthesisDuration is a histogram of single chunk synthesis time.
	synthesisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Duration of one chunk synthesis in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"engine"},
	)

	// cacheLookups counts audio cache lookups.
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Audio cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss
	)

	// chaptersTotal counts chapter files written.
	chaptersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_total",
			Help:      "Chapters processed by outcome",
		},
		[]string{"status"}, // status: written, skipped
	)

	// jobsTotal counts finished jobs by final state.
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Conversion jobs by final state",
		},
		[]string{"state"},
	)

	// jobsQueued is the number of jobs waiting or running.
	jobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_pending",
			Help:      "Conversion jobs queued or running",
		},
	)

	// httpRequests counts web requests by route and status code.
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "code"},
	)
)

var allMetrics = []prometheus.Collector{
	chunksTotal,
	synthesisDuration,
	cacheLookups,
	chaptersTotal,
	jobsTotal,
	jobsQueued,
	httpRequests,
}

var registry = newRegistry()

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordChunk records one synthesis attempt.
func RecordChunk(engine string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	chunksTotal.WithLabelValues(engine, status).Inc()
	synthesisDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// RecordCacheLookup records an audio cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordChapter records a chapter that was written or skipped.
func RecordChapter(written bool) {
	status := "skipped"
	if written {
		status = "written"
	}
	chaptersTotal.WithLabelValues(status).Inc()
}

// JobQueued increments the pending job gauge.
func JobQueued() { jobsQueued.Inc() }

// JobFinished decrements the pending job gauge and counts the final state.
func JobFinished(state string) {
	jobsQueued.Dec()
	jobsTotal.WithLabelValues(state).Inc()
}

// RecordRequest records a served HTTP request.
func RecordRequest(method, route string, code int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
