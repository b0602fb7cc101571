package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/locate", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `locator_build_info{version="test"} 1`) {
		t.Fatalf("missing build info; got:\n%s", body)
	}
	if !strings.Contains(body, `http_requests_total{method="GET",route="/locate",status="200"}`) {
		t.Fatalf("missing http_requests_total sample; got:\n%s", body)
	}
}

func TestInit_PrivateRegistryAndIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)
	Init(reg, true)
	Init(nil, true)
	Init(reg, false)

	before := testutil.ToFloat64(builds.WithLabelValues("error"))
	ObserveBuild(errors.New("boom"), 0)
	if got := testutil.ToFloat64(builds.WithLabelValues("error")); got != before+1 {
		t.Fatalf("builds{error}=%v want %v", got, before+1)
	}

	IncLocate("inside")
	SetSubdivisionsLoaded(3)
	if got := testutil.ToFloat64(subdivisionsLoaded); got != 3 {
		t.Fatalf("subdivisions_loaded=%v want 3", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var seen bool
	for _, mf := range mfs {
		if mf.GetName() == "locate_results_total" {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("locate_results_total not exported by private registry")
	}
}

func TestObserveStoreOp_Labels(t *testing.T) {
	ObserveStoreOp("get", nil, 0.001)
	ObserveStoreOp("get", errors.New("x"), 0.001)
	if testutil.ToFloat64(storeOps.WithLabelValues("get", "ok")) < 1 ||
		testutil.ToFloat64(storeOps.WithLabelValues("get", "error")) < 1 {
		t.Fatalf("store_op_total not incremented")
	}
}
