// Package domain defines the core types shared by the fetcher, the poll
// coordinator, and the metric aggregator.
package domain

// GaugeDescriptor identifies one monitored USGS station. Descriptors are
// loaded once at startup and never mutated afterwards.
type GaugeDescriptor struct {
	// ID is the USGS site code, e.g. "09380000".
	ID string `yaml:"id"`
	// Name is the station's location name as configured.
	Name string `yaml:"name"`
	// FriendlyName is a short human label for dashboards.
	FriendlyName string `yaml:"friendly_name"`
}

// Label returns the friendly name, falling back to the location name and
// finally the site code.
func (g GaugeDescriptor) Label() string {
	if g.FriendlyName != "" {
		return g.FriendlyName
	}
	return g.Location()
}

// Location returns the location name, falling back to the site code.
func (g GaugeDescriptor) Location() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// FailureKind classifies why a single gauge fetch produced no value.
type FailureKind string

const (
	// FailTransport covers network errors, timeouts, and non-auth HTTP errors.
	FailTransport FailureKind = "transport"
	// FailAuthExhausted means every configured credential was rejected.
	FailAuthExhausted FailureKind = "auth_exhausted"
	// FailNoData means the API answered but the gauge has no current reading.
	FailNoData FailureKind = "no_data"
	// FailParseError means the payload was present but malformed.
	FailParseError FailureKind = "parse_error"
)

// FetchOutcome is the result of one gauge query: a streamflow value in CFS,
// or a classified failure. Outcomes live only for the current poll cycle.
type FetchOutcome struct {
	Gauge GaugeDescriptor
	// Value is the latest streamflow reading in cubic feet per second.
	// Valid only when OK is true.
	Value float64
	OK    bool
	Kind  FailureKind
	Err   error
	// RateLimits holds quota headers observed while servicing this fetch,
	// keyed by credential label. The fetcher never touches the aggregator;
	// observations ride along on the outcome instead.
	RateLimits map[string]RateLimit
}

// Success builds a successful outcome for the given gauge.
func Success(g GaugeDescriptor, value float64) FetchOutcome {
	return FetchOutcome{Gauge: g, Value: value, OK: true}
}

// Failure builds a failed outcome with its classification.
func Failure(g GaugeDescriptor, kind FailureKind, err error) FetchOutcome {
	return FetchOutcome{Gauge: g, Kind: kind, Err: err}
}

// RateLimit carries the per-credential quota headers returned by the USGS API.
type RateLimit struct {
	Remaining float64
	Limit     float64
}

// Used reports how much of the hourly quota has been consumed.
func (r RateLimit) Used() float64 {
	return r.Limit - r.Remaining
}

// Snapshot is a complete, internally consistent view of the aggregator state.
// Maps are copies owned by the caller.
type Snapshot struct {
	// Streamflow maps gauge ID to the last successfully fetched value.
	// A gauge is absent until its first successful fetch.
	Streamflow map[string]float64
	// FailuresByKind breaks the failure counter down by classification.
	FailuresByKind map[FailureKind]int64
	// RateLimits maps credential label ("primary", "backup") to the most
	// recently observed quota headers.
	RateLimits map[string]RateLimit

	SuccessCount  int64
	FailureCount  int64
	GaugeCount    int
	LastScrapeDur float64
}
