package ginserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
	"github.com/hydrowatch/usgs-exporter/internal/metrics"
)

// Handler serves the scrape endpoint and the human-readable status page.
type Handler struct {
	agg    *metrics.Aggregator
	gauges []domain.GaugeDescriptor
	promh  http.Handler
}

// NewHandler builds the handler over a private Prometheus registry. Scraping
// /metrics drives the poll cycle through the collectors registered on reg.
func NewHandler(reg *prometheus.Registry, agg *metrics.Aggregator, gauges []domain.GaugeDescriptor) *Handler {
	return &Handler{
		agg:    agg,
		gauges: gauges,
		promh:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

// Metrics handles `GET /metrics`, the Prometheus scrape endpoint.
func (h *Handler) Metrics(c *gin.Context) {
	h.promh.ServeHTTP(c.Writer, c.Request)
}

// Healthz handles `GET /healthz`. The endpoint reports liveness only; gauge
// failures are visible through the counters, never through this probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
}

// Index renders a basic HTML page with the configured gauges and their last
// known streamflow values.
func (h *Handler) Index(c *gin.Context) {
	snap := h.agg.Snapshot()

	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>usgs-exporter</title>")
	sb.WriteString("<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}</style>")
	sb.WriteString("</head><body>")
	sb.WriteString("<h1>USGS Streamflow Exporter</h1>")

	sb.WriteString("<h2>Gauges</h2><table><tr><th>Site</th><th>Name</th><th>Streamflow (CFS)</th></tr>")
	for _, g := range h.gauges {
		sb.WriteString("<tr><td>")
		sb.WriteString(g.ID)
		sb.WriteString("</td><td>")
		sb.WriteString(g.Label())
		sb.WriteString("</td><td>")
		if v, ok := snap.Streamflow[g.ID]; ok {
			sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		} else {
			sb.WriteString("n/a")
		}
		sb.WriteString("</td></tr>")
	}
	sb.WriteString("</table>")

	sb.WriteString("<h2>Scrape stats</h2><table><tr><th>Counter</th><th>Value</th></tr>")
	sb.WriteString("<tr><td>success</td><td>")
	sb.WriteString(strconv.FormatInt(snap.SuccessCount, 10))
	sb.WriteString("</td></tr><tr><td>failure</td><td>")
	sb.WriteString(strconv.FormatInt(snap.FailureCount, 10))
	sb.WriteString("</td></tr><tr><td>last scrape seconds</td><td>")
	sb.WriteString(strconv.FormatFloat(snap.LastScrapeDur, 'f', 3, 64))
	sb.WriteString("</td></tr></table>")

	sb.WriteString("<p><a href='/metrics'>/metrics</a></p>")
	sb.WriteString("</body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}
