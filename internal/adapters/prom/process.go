package prom

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessCollector samples the exporter's own resource usage via gopsutil.
// Best effort: a sampling error simply omits the metric from that scrape.
type ProcessCollector struct {
	proc *process.Process

	rss     *prometheus.Desc
	cpuPct  *prometheus.Desc
	numFDs  *prometheus.Desc
	threads *prometheus.Desc
}

var _ prometheus.Collector = (*ProcessCollector)(nil)

// NewProcessCollector attaches to the current process.
func NewProcessCollector() (*ProcessCollector, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessCollector{
		proc: p,
		rss: prometheus.NewDesc(
			"usgs_exporter_process_resident_memory_bytes",
			"Resident memory of the exporter process",
			nil, nil,
		),
		cpuPct: prometheus.NewDesc(
			"usgs_exporter_process_cpu_percent",
			"CPU utilization of the exporter process",
			nil, nil,
		),
		numFDs: prometheus.NewDesc(
			"usgs_exporter_process_open_fds",
			"Open file descriptors held by the exporter process",
			nil, nil,
		),
		threads: prometheus.NewDesc(
			"usgs_exporter_process_threads",
			"OS threads used by the exporter process",
			nil, nil,
		),
	}, nil
}

// Describe sends the self-telemetry descriptors.
func (c *ProcessCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rss
	ch <- c.cpuPct
	ch <- c.numFDs
	ch <- c.threads
}

// Collect samples the process stats.
func (c *ProcessCollector) Collect(ch chan<- prometheus.Metric) {
	if mi, err := c.proc.MemoryInfo(); err == nil && mi != nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mi.RSS))
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpuPct, prometheus.GaugeValue, pct)
	}
	if fds, err := c.proc.NumFDs(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.numFDs, prometheus.GaugeValue, float64(fds))
	}
	if th, err := c.proc.NumThreads(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.threads, prometheus.GaugeValue, float64(th))
	}
}
