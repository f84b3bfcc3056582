// Package prom bridges the aggregator snapshot into Prometheus metrics.
package prom

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
	"github.com/hydrowatch/usgs-exporter/internal/metrics"
	"github.com/hydrowatch/usgs-exporter/internal/ports"
)

// Exporter implements prometheus.Collector. Each Collect call triggers one
// poll cycle (pull model, no internal timer) and then renders the freshly
// committed snapshot as constant metrics, so every scrape reflects a single
// consistent cycle.
type Exporter struct {
	cycler ports.Cycler
	agg    *metrics.Aggregator
	byID   map[string]domain.GaugeDescriptor
	logger *zap.Logger

	streamflow   *prometheus.Desc
	scrapeOK     *prometheus.Desc
	scrapeFail   *prometheus.Desc
	fetchErrors  *prometheus.Desc
	gaugesTotal  *prometheus.Desc
	scrapeDur    *prometheus.Desc
	rlRemaining  *prometheus.Desc
	rlLimit      *prometheus.Desc
	rlUsedHourly *prometheus.Desc
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter wires the poll coordinator and aggregator into a collector.
// The gauge list supplies the per-gauge label values.
func NewExporter(gauges []domain.GaugeDescriptor, cycler ports.Cycler, agg *metrics.Aggregator, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]domain.GaugeDescriptor, len(gauges))
	for _, g := range gauges {
		byID[g.ID] = g
	}
	return &Exporter{
		cycler: cycler,
		agg:    agg,
		byID:   byID,
		logger: logger,
		streamflow: prometheus.NewDesc(
			"usgs_streamflow_cfs",
			"USGS streamflow in cubic feet per second",
			[]string{"gauge_id", "friendly_name", "location_name"}, nil,
		),
		scrapeOK: prometheus.NewDesc(
			"usgs_exporter_scrape_success_total",
			"Number of successful gauge fetches",
			nil, nil,
		),
		scrapeFail: prometheus.NewDesc(
			"usgs_exporter_scrape_failure_total",
			"Total number of failed gauge fetches",
			nil, nil,
		),
		fetchErrors: prometheus.NewDesc(
			"usgs_exporter_fetch_errors_total",
			"Failed gauge fetches broken down by failure classification",
			[]string{"reason"}, nil,
		),
		gaugesTotal: prometheus.NewDesc(
			"usgs_exporter_gauges_total",
			"Total number of gauges configured for polling",
			nil, nil,
		),
		scrapeDur: prometheus.NewDesc(
			"usgs_exporter_scrape_duration_seconds",
			"Time spent scraping all gauges",
			nil, nil,
		),
		rlRemaining: prometheus.NewDesc(
			"usgs_api_ratelimit_remaining",
			"Remaining allowed requests per hour for each USGS API key",
			[]string{"api_key_label"}, nil,
		),
		rlLimit: prometheus.NewDesc(
			"usgs_api_ratelimit_limit",
			"Limit of allowed requests per hour",
			[]string{"api_key_label"}, nil,
		),
		rlUsedHourly: prometheus.NewDesc(
			"usgs_api_requests_per_hour",
			"Number of USGS API requests used in the current hour",
			[]string{"api_key_label"}, nil,
		),
	}
}

// Describe sends every metric descriptor the exporter can emit.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.streamflow
	ch <- e.scrapeOK
	ch <- e.scrapeFail
	ch <- e.fetchErrors
	ch <- e.gaugesTotal
	ch <- e.scrapeDur
	ch <- e.rlRemaining
	ch <- e.rlLimit
	ch <- e.rlUsedHourly
}

// Collect runs one poll cycle and renders the resulting snapshot.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if err := e.cycler.RunCycle(context.Background()); err != nil {
		e.logger.Warn("poll cycle interrupted", zap.Error(err))
	}

	snap := e.agg.Snapshot()

	for id, val := range snap.Streamflow {
		g, ok := e.byID[id]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(e.streamflow, prometheus.GaugeValue,
			val, g.ID, g.Label(), g.Location())
	}

	ch <- prometheus.MustNewConstMetric(e.scrapeOK, prometheus.CounterValue, float64(snap.SuccessCount))
	ch <- prometheus.MustNewConstMetric(e.scrapeFail, prometheus.CounterValue, float64(snap.FailureCount))
	ch <- prometheus.MustNewConstMetric(e.gaugesTotal, prometheus.GaugeValue, float64(snap.GaugeCount))
	ch <- prometheus.MustNewConstMetric(e.scrapeDur, prometheus.GaugeValue, snap.LastScrapeDur)

	for kind, n := range snap.FailuresByKind {
		ch <- prometheus.MustNewConstMetric(e.fetchErrors, prometheus.CounterValue,
			float64(n), string(kind))
	}

	for label, rl := range snap.RateLimits {
		ch <- prometheus.MustNewConstMetric(e.rlRemaining, prometheus.GaugeValue, rl.Remaining, label)
		ch <- prometheus.MustNewConstMetric(e.rlLimit, prometheus.GaugeValue, rl.Limit, label)
		ch <- prometheus.MustNewConstMetric(e.rlUsedHourly, prometheus.GaugeValue, rl.Used(), label)
	}
}
