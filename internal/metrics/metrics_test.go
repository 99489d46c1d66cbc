package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	Solves.WithLabelValues("converged").Inc()
	MatrixRequests.WithLabelValues("osrm", "ok").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("metrics: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{`route_solves_total{outcome="converged"}`, `matrix_requests_total{source="osrm",status="ok"}`, "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %s in metrics output", want)
		}
	}
	// registering twice must not panic
	RegisterDefault()
}
