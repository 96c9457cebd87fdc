package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/tribunal/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.CaptureFinished("hearings", "TRT3", "auto", "completed", 150, time.Second)
	m.Retry("fetch_page")
	m.BreakerTransition("TRT3", "closed", "open")
	m.RunStarted()
	m.RunDone()
	m.Gap("timeline", "missing_documents")
}

func TestCaptureFinished(t *testing.T) {
	m := metrics.New()
	m.CaptureFinished("hearings", "TRT3", "auto", "completed", 150, 2*time.Second)
	m.CaptureFinished("hearings", "TRT3", "auto", "completed", 0, time.Second)

	want := `
# HELP tribunal_captured_items_total Normalized records persisted by capture type.
# TYPE tribunal_captured_items_total counter
tribunal_captured_items_total{capture_type="hearings",tribunal="TRT3"} 150
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "tribunal_captured_items_total"); err != nil {
		t.Error(err)
	}
}

func TestHandlerServesBreakerState(t *testing.T) {
	m := metrics.New()
	m.BreakerTransition("TRT15", "closed", "open")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), `tribunal_circuit_breaker_state{tribunal="TRT15"} 2`) {
		t.Errorf("breaker state not exported:\n%s", body)
	}
}
