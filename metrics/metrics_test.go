package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObservePage("gold", 10)
	m.ObservePage("gold", 5)
	m.ObserveRun("gold", OutcomeCompleted, 42)
	m.ObserveRun("gold", OutcomeFailed, 0)

	if got := testutil.ToFloat64(m.Pages.WithLabelValues("gold")); got != 2 {
		t.Errorf("pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Records.WithLabelValues("gold")); got != 15 {
		t.Errorf("records = %v, want 15", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("gold", OutcomeFailed)); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.RunDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRun("gainers", OutcomeCached, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	want := `tablescout_runs_total{outcome="cached",profile="gainers"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
