// SPDX-License-Identifier: MIT

package webserve

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talos_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "talos_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	reportRequestsDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talos_report_requests_denied_total",
		Help: "Number of report file requests denied, by reason",
	}, []string{"reason"})

	reportRequestsServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talos_report_requests_served_total",
		Help: "Number of report file requests served with content",
	})

	reportCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talos_report_cache_hits_total",
		Help: "Number of report file requests answered with 304 Not Modified",
	})

	reportCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talos_report_cache_misses_total",
		Help: "Number of report file requests that sent full content",
	})

	indexRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talos_index_rebuilds_total",
		Help: "Number of report index rebuilds, by outcome",
	}, []string{"outcome"})

	indexRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talos_index_rebuild_duration_seconds",
		Help:    "Duration of report index rebuilds in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 10), // 5ms .. ~2.5s
	})
)

func recordReportServed() {
	reportRequestsServedTotal.Inc()
}

func recordReportDenied(reason string) {
	reportRequestsDeniedTotal.WithLabelValues(reason).Inc()
}

func recordReportCacheHit() {
	reportCacheHitsTotal.Inc()
}

func recordReportCacheMiss() {
	reportCacheMissesTotal.Inc()
}

func recordIndexRebuild(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	indexRebuildsTotal.WithLabelValues(outcome).Inc()
	indexRebuildDuration.Observe(duration.Seconds())
}
