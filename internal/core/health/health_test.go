package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

func TestReadiness_Handler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"ready", nil, http.StatusOK, `"status":"ready"`},
		{"not ready", errors.New("wfs unreachable"), http.StatusServiceUnavailable, `"error":"wfs unreachable"`},
	}
	for _, tc := range cases {
		h := Readiness(CheckerFunc(func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("%s: expected a deadline on the readiness context", tc.name)
			}
			return tc.err
		}), time.Second)

		rr := httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.name, rr.Code, tc.status)
		}
		if !strings.Contains(rr.Body.String(), tc.want) {
			t.Fatalf("%s: body=%s", tc.name, rr.Body.String())
		}
	}
}
