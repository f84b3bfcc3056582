// Package usgs implements the HTTP client for the USGS water data OGC API.
package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hydrowatch/usgs-exporter/internal/creds"
	"github.com/hydrowatch/usgs-exporter/internal/domain"
	"github.com/hydrowatch/usgs-exporter/internal/ports"
)

const (
	paramDischarge     = "00060" // discharge, cubic feet per second
	statInstantaneous  = "00011"
	defaultHTTPTimeout = 10 * time.Second
)

var (
	errAuthRejected = errors.New("credential rejected")
	errMalformed    = errors.New("malformed payload")
)

// Client fetches the latest discharge reading for one gauge per call,
// applying credential failover on authorization-class responses. It performs
// no retries beyond failover and never mutates aggregator state.
type Client struct {
	base   *url.URL
	hc     *http.Client
	pool   *creds.Pool
	logger *zap.Logger
}

var _ ports.Fetcher = (*Client)(nil)

// New parses the API base URL and wires the credential pool. A nil hc gets a
// default client with a bounded timeout.
func New(apiURL string, pool *creds.Pool, hc *http.Client, logger *zap.Logger) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	return &Client{base: u, hc: hc, pool: pool, logger: logger}, nil
}

// Fetch queries the latest reading for g. Failover order is the pool order:
// an auth-class response moves to the next credential, any other failure is
// classified and returned immediately. With both credentials rejected the
// outcome is AuthExhausted.
func (c *Client) Fetch(ctx context.Context, g domain.GaugeDescriptor) domain.FetchOutcome {
	limits := make(map[string]domain.RateLimit)

	attempts := c.pool.Ordered()
	if len(attempts) == 0 {
		// No keys configured: a single unauthenticated request.
		attempts = []creds.Credential{{Label: "anonymous"}}
	}

	for _, cred := range attempts {
		val, err := c.attempt(ctx, g, cred, limits)
		switch {
		case err == nil:
			o := domain.Success(g, val)
			o.RateLimits = limits
			return o
		case errors.Is(err, errAuthRejected):
			c.logger.Warn("credential rejected, failing over",
				zap.String("gauge", g.ID),
				zap.String("credential", cred.Label),
			)
			continue
		case errors.Is(err, domain.ErrNoData):
			return withLimits(domain.Failure(g, domain.FailNoData, err), limits)
		case errors.Is(err, errMalformed):
			return withLimits(domain.Failure(g, domain.FailParseError, err), limits)
		default:
			return withLimits(domain.Failure(g, domain.FailTransport, err), limits)
		}
	}
	return withLimits(domain.Failure(g, domain.FailAuthExhausted, domain.ErrAuthExhausted), limits)
}

func withLimits(o domain.FetchOutcome, limits map[string]domain.RateLimit) domain.FetchOutcome {
	o.RateLimits = limits
	return o
}

func (c *Client) attempt(ctx context.Context, g domain.GaugeDescriptor, cred creds.Credential, limits map[string]domain.RateLimit) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.itemsURL(g), http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if cred.Key != "" {
		req.Header.Set("X-Api-Key", cred.Key)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	captureRateLimit(resp, cred.Label, limits)

	switch {
	case resp.StatusCode == http.StatusOK:
		return parseLatestValue(resp.Body)
	case isAuthStatus(resp.StatusCode):
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: status %s", errAuthRejected, resp.Status)
	default:
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (c *Client) itemsURL(g domain.GaugeDescriptor) string {
	u := *c.base
	q := u.Query()
	q.Set("monitoring_location_id", "USGS-"+g.ID)
	q.Set("parameter_code", paramDischarge)
	q.Set("statistic_id", statInstantaneous)
	q.Set("properties", "value,time")
	u.RawQuery = q.Encode()
	return u.String()
}

// isAuthStatus reports whether the response means the credential itself was
// refused: unauthorized, forbidden, or hourly quota exceeded.
func isAuthStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func captureRateLimit(resp *http.Response, label string, limits map[string]domain.RateLimit) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	limit := resp.Header.Get("X-RateLimit-Limit")
	if remaining == "" || limit == "" {
		return
	}
	rem, err := strconv.ParseFloat(remaining, 64)
	if err != nil {
		return
	}
	lim, err := strconv.ParseFloat(limit, 64)
	if err != nil {
		return
	}
	limits[label] = domain.RateLimit{Remaining: rem, Limit: lim}
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			Value json.RawMessage `json:"value"`
		} `json:"properties"`
	} `json:"features"`
}

// parseLatestValue extracts the first feature's observation value. The API
// serves the value either as a bare number, a numeric string, or an object
// with a nested "value" field.
func parseLatestValue(r io.Reader) (float64, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(fc.Features) == 0 {
		return 0, domain.ErrNoData
	}
	return decodeValue(fc.Features[0].Properties.Value, true)
}

func decodeValue(raw json.RawMessage, allowNested bool) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, domain.ErrNoData
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric value %q", errMalformed, str)
		}
		return v, nil
	}

	if allowNested {
		var nested struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil {
			return decodeValue(nested.Value, false)
		}
	}
	return 0, fmt.Errorf("%w: unsupported value shape", errMalformed)
}
