// Package metrics implements the in-memory aggregator holding the exporter's
// current metric state.
package metrics

import (
	"maps"
	"sync"
	"time"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
)

// Aggregator keeps the last known streamflow per gauge plus global scrape
// counters. Writes arrive only from the poll coordinator as one commit per
// cycle; reads may happen concurrently and always see a fully committed
// state, never a partial cycle.
type Aggregator struct {
	flows          map[string]float64
	failuresByKind map[domain.FailureKind]int64
	rateLimits     map[string]domain.RateLimit
	success        int64
	failure        int64
	gaugeCount     int
	lastScrapeDur  float64
	mu             sync.RWMutex
}

// New returns an empty aggregator for the given number of configured gauges.
func New(gaugeCount int) *Aggregator {
	return &Aggregator{
		flows:          make(map[string]float64),
		failuresByKind: make(map[domain.FailureKind]int64),
		rateLimits:     make(map[string]domain.RateLimit),
		gaugeCount:     gaugeCount,
	}
}

// CommitCycle applies every outcome of one completed poll cycle and records
// its wall-clock duration under a single lock acquisition. A failed gauge
// leaves its previous value in place; only successes overwrite.
func (a *Aggregator) CommitCycle(outcomes []domain.FetchOutcome, dur time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, o := range outcomes {
		if o.OK {
			a.flows[o.Gauge.ID] = o.Value
			a.success++
		} else {
			a.failure++
			a.failuresByKind[o.Kind]++
		}
		for label, rl := range o.RateLimits {
			a.rateLimits[label] = rl
		}
	}
	a.lastScrapeDur = dur.Seconds()
}

// Snapshot returns a consistent copy of the current state. Safe to call
// concurrently with CommitCycle.
func (a *Aggregator) Snapshot() domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := domain.Snapshot{
		Streamflow:     make(map[string]float64, len(a.flows)),
		FailuresByKind: make(map[domain.FailureKind]int64, len(a.failuresByKind)),
		RateLimits:     make(map[string]domain.RateLimit, len(a.rateLimits)),
		SuccessCount:   a.success,
		FailureCount:   a.failure,
		GaugeCount:     a.gaugeCount,
		LastScrapeDur:  a.lastScrapeDur,
	}
	maps.Copy(s.Streamflow, a.flows)
	maps.Copy(s.FailuresByKind, a.failuresByKind)
	maps.Copy(s.RateLimits, a.rateLimits)
	return s
}
