package controlapi

import (
	"net/http"
	"testing"

	"github.com/rafaeljc/verdandi/internal/testsupport"
)

// Deliberately not parallel: these tests assert exact deltas on process-wide
// Prometheus counters.

func TestMetricsCollector_CountsByRoutePattern(t *testing.T) {
	api, _ := newTestAPI(t)

	testsupport.AssertMetricDelta(t,
		"verdandi_control_plane_http_requests_total",
		map[string]string{"method": "GET", "path": "/health", "code": "200"},
		1,
		func() { doJSON(t, api, http.MethodGet, "/health", nil) },
	)

	// The flag key must not leak into the path label.
	testsupport.AssertMetricDelta(t,
		"verdandi_control_plane_http_requests_total",
		map[string]string{"method": "POST", "path": "/api/v1/evaluate/{key}", "code": "200"},
		1,
		func() { doJSON(t, api, http.MethodPost, "/api/v1/evaluate/some-flag", EvaluateRequest{UserID: "u1"}) },
	)

	testsupport.AssertHistogramRecorded(t,
		"verdandi_control_plane_http_handling_seconds",
		map[string]string{"method": "GET", "path": "/health"},
	)
}

func TestEvaluateEndpoint_RecordsEngineMetrics(t *testing.T) {
	api, _ := newTestAPI(t)

	testsupport.AssertMetricDelta(t,
		"verdandi_engine_evaluations_total",
		map[string]string{"reason": "NOT_FOUND"},
		1,
		func() { doJSON(t, api, http.MethodPost, "/api/v1/evaluate/never-registered", EvaluateRequest{UserID: "u1"}) },
	)
}
