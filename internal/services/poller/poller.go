// Package poller implements the poll coordinator that fans one fetch per
// gauge out across a bounded worker pool and commits the results.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
	"github.com/hydrowatch/usgs-exporter/internal/metrics"
	"github.com/hydrowatch/usgs-exporter/internal/ports"
)

// DefaultMaxWorkers bounds concurrent upstream requests when the
// configuration does not say otherwise.
const DefaultMaxWorkers = 10

// Coordinator runs poll cycles. Each cycle dispatches exactly one fetch task
// per configured gauge, waits for every outcome, and commits them to the
// aggregator as a single update. Cycles are serialized: a scrape arriving
// while another cycle is in flight waits for it instead of double-counting.
type Coordinator struct {
	gauges  []domain.GaugeDescriptor
	fetcher ports.Fetcher
	agg     *metrics.Aggregator
	workers int
	logger  *zap.Logger
	cycleMu sync.Mutex
}

var _ ports.Cycler = (*Coordinator)(nil)

// New builds a coordinator over an immutable gauge list. workers below 1 is
// clamped to 1; the effective pool size never exceeds the gauge count.
func New(gauges []domain.GaugeDescriptor, fetcher ports.Fetcher, agg *metrics.Aggregator, workers int, logger *zap.Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		gauges:  gauges,
		fetcher: fetcher,
		agg:     agg,
		workers: workers,
		logger:  logger,
	}
}

// RunCycle polls every configured gauge once and commits the outcomes. A
// failed gauge never aborts the cycle; its failure is contained in its own
// outcome. The returned error reflects only context cancellation.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	start := time.Now()

	if len(c.gauges) == 0 {
		c.agg.CommitCycle(nil, time.Since(start))
		return ctx.Err()
	}

	workers := c.workers
	if workers > len(c.gauges) {
		workers = len(c.gauges)
	}

	jobs := make(chan domain.GaugeDescriptor)
	// Buffered to gauge count so workers never block on result delivery.
	results := make(chan domain.FetchOutcome, len(c.gauges))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				results <- c.fetchOne(ctx, g)
			}
		}()
	}

	for _, g := range c.gauges {
		jobs <- g
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]domain.FetchOutcome, 0, len(c.gauges))
	var ok, failed int
	for o := range results {
		outcomes = append(outcomes, o)
		if o.OK {
			ok++
		} else {
			failed++
		}
	}

	dur := time.Since(start)
	c.agg.CommitCycle(outcomes, dur)

	c.logger.Info("poll cycle complete",
		zap.Int("gauges", len(c.gauges)),
		zap.Int("success", ok),
		zap.Int("failure", failed),
		zap.Duration("duration", dur),
	)
	return ctx.Err()
}

// fetchOne invokes the fetcher and converts a panic inside it into a
// transport failure so one gauge can never take down the cycle.
func (c *Coordinator) fetchOne(ctx context.Context, g domain.GaugeDescriptor) (out domain.FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fetch panicked",
				zap.String("gauge", g.ID),
				zap.Any("panic", r),
			)
			out = domain.Failure(g, domain.FailTransport, fmt.Errorf("fetch panic: %v", r))
		}
	}()
	return c.fetcher.Fetch(ctx, g)
}
