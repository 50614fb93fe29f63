// SPDX-License-Identifier: MIT

package webserve

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, vec.WithLabelValues(labels...))
}

// Counters are process globals, so every assertion works on deltas.
func TestReportCountersTrackServesAndCacheHits(t *testing.T) {
	s, root := newTestServer(t, 0)
	writeReportFile(t, root, "acute", "report_2026-08-01.html", "<html></html>")

	served := getCounterValue(t, reportRequestsServedTotal)
	misses := getCounterValue(t, reportCacheMissesTotal)
	hits := getCounterValue(t, reportCacheHitsTotal)

	rec := get(t, s.Handler(), "/reports/acute/report_2026-08-01.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, served+1, getCounterValue(t, reportRequestsServedTotal))
	assert.Equal(t, misses+1, getCounterValue(t, reportCacheMissesTotal))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rec = get(t, s.Handler(), "/reports/acute/report_2026-08-01.html", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, hits+1, getCounterValue(t, reportCacheHitsTotal))
	assert.Equal(t, served+1, getCounterValue(t, reportRequestsServedTotal),
		"a 304 does not count as served")
}

func TestDeniedCounterLabelsReasons(t *testing.T) {
	s, _ := newTestServer(t, 0)

	escapes := getCounterVecValue(t, reportRequestsDeniedTotal, "path_escape")
	notFound := getCounterVecValue(t, reportRequestsDeniedTotal, "not_found")

	rec := get(t, s.Handler(), "/reports/../go.mod", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, escapes+1, getCounterVecValue(t, reportRequestsDeniedTotal, "path_escape"))

	rec = get(t, s.Handler(), "/reports/acute/missing.html", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFound+1, getCounterVecValue(t, reportRequestsDeniedTotal, "not_found"))
}
