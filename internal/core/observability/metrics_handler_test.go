package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	Init(reg)

	ObserveHTTP("GET", "/sessions/{id}", 200, 0.001)
	ObserveExport("geojson", "ok", 1024)
	IncPointOp("add", 1)
	ObserveCacheOp("get", errors.New("boom"), 0.0001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",route="/sessions/{id}",status="200"}`,
		`geobuffer_exports_total{format="geojson",outcome="ok"}`,
		`geobuffer_point_ops_total{op="add"}`,
		`cache_op_total{op="get",result="error"}`,
		`geobuffer_export_bytes_bucket{format="geojson"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}

func TestInit_NilRegistry(t *testing.T) {
	Init(nil)
}
