package ports

import (
	"context"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
)

// Fetcher retrieves the latest reading for a single gauge. Implementations
// bound each call with their own per-request timeout and classify every
// failure; Fetch never panics and never returns without an outcome.
type Fetcher interface {
	Fetch(ctx context.Context, g domain.GaugeDescriptor) domain.FetchOutcome
}

// Cycler runs one full poll cycle across every configured gauge. The serving
// layer triggers it on each scrape request.
type Cycler interface {
	RunCycle(ctx context.Context) error
}
