package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/geobuffer/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_AppMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})

	observability.ObserveHTTP("PUT", "/sessions/{id}/buffer", 204, 0.002)
	observability.IncPointOp("import", 12)
	observability.ObserveExport("shapefile", "ok", 4096)
	observability.ObserveExport("geojson", "empty", 0)
	observability.ObserveCacheOp("get", errors.New("down"), 0.001)
	observability.SetSessionsActive(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain := []string{
		`http_request_duration_seconds_bucket`,
		`geobuffer_export_bytes_bucket{format="shapefile"`,
		`redis_operation_duration_seconds_count{op="get"}`,
		`geobuffer_sessions_active 3`,
	}
	for _, s := range mustContain {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "http_requests_total",
		`method="PUT"`, `route="/sessions/{id}/buffer"`, `status="204"`)
	assertHasMetricLine(t, body, "geobuffer_points_touched_total", `op="import"`)
	assertHasMetricLine(t, body, "geobuffer_exports_total", `format="geojson"`, `outcome="empty"`)
	assertHasMetricLine(t, body, "cache_op_total", `op="get"`, `result="error"`)
	assertHasMetricLine(t, body, "geobuffer_build_info", `version="test"`)
}
