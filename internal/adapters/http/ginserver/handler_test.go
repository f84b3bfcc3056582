package ginserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hydrowatch/usgs-exporter/internal/adapters/prom"
	"github.com/hydrowatch/usgs-exporter/internal/domain"
	"github.com/hydrowatch/usgs-exporter/internal/metrics"
)

type stubCycler struct {
	calls int
	fn    func()
}

func (s *stubCycler) RunCycle(context.Context) error {
	s.calls++
	if s.fn != nil {
		s.fn()
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubCycler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gauges := []domain.GaugeDescriptor{
		{ID: "09380000", FriendlyName: "Lees Ferry"},
		{ID: "06191500"},
	}
	agg := metrics.New(len(gauges))
	cycler := &stubCycler{fn: func() {
		agg.CommitCycle([]domain.FetchOutcome{
			domain.Success(gauges[0], 12.4),
			domain.Failure(gauges[1], domain.FailNoData, domain.ErrNoData),
		}, 30*time.Millisecond)
	}}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prom.NewExporter(gauges, cycler, agg, nil))

	h := NewHandler(reg, agg, gauges)
	return NewRouter(h), cycler
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", w.Body.String())
	}
}

func TestMetrics_ScrapeTriggersCycle(t *testing.T) {
	r, cycler := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cycler.calls != 1 {
		t.Fatalf("cycle runs = %d, want 1", cycler.calls)
	}

	body := w.Body.String()
	for _, want := range []string{
		`usgs_streamflow_cfs{friendly_name="Lees Ferry",gauge_id="09380000",location_name="09380000"} 12.4`,
		"usgs_exporter_scrape_success_total 1",
		"usgs_exporter_scrape_failure_total 1",
		"usgs_exporter_gauges_total 2",
		"usgs_exporter_scrape_duration_seconds 0.03",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape body missing %q\nbody:\n%s", want, body)
		}
	}
}

func TestMetrics_EndpointNeverFailsOnGaugeErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("scrape %d status = %d, want 200", i, w.Code)
		}
	}
}

func TestIndex(t *testing.T) {
	r, _ := newTestRouter(t)

	// No cycle has run yet: values are shown as n/a.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "n/a") {
		t.Error("index before first cycle should show n/a values")
	}

	// After one scrape the successful gauge shows its value.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	if !strings.Contains(body, "09380000") || !strings.Contains(body, "12.4") {
		t.Errorf("index missing gauge data:\n%s", body)
	}
}

func TestNoMethod(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
