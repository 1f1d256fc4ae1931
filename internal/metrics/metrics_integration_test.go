package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/observability"
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

	observability.IncWFSRequest("GetFeature", "ok")
	observability.IncWFSRequest("GetFeature", "server")
	observability.ObserveUpstreamLatency("wfs", "GetFeature", 0.120)
	observability.AddWFSResponseBytes("GetFeature", 1024)
	observability.IncCacheHit()
	observability.ObserveCacheOp("get", nil, 0.002)
	observability.ObserveHTTP("GET", "/features", 200, 0.2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain := []string{
		`upstream_latency_seconds_bucket`,
		`cache_op_duration_seconds_count{op="get",result="ok"} `,
		`wfs_response_bytes_total{operation="GetFeature"} `,
	}
	for _, s := range mustContain {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "wfs_requests_total",
		`operation="GetFeature"`, `outcome="server"`)
	assertHasMetricLine(t, body, "http_requests_total",
		`route="/features"`, `status="200"`)
	assertHasMetricLine(t, body, "app_build_info",
		`version="test"`)
}
