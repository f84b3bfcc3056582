package usgs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hydrowatch/usgs-exporter/internal/creds"
	"github.com/hydrowatch/usgs-exporter/internal/domain"
)

const bodyOK = `{"features":[{"properties":{"value":12.4,"time":"2024-06-01T00:00:00Z"}}]}`

func testGauge() domain.GaugeDescriptor {
	return domain.GaugeDescriptor{ID: "09380000", Name: "Colorado River at Lees Ferry"}
}

func newTestClient(t *testing.T, url string, pool *creds.Pool) *Client {
	t.Helper()
	c, err := New(url, pool, &http.Client{Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestFetch_Success(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		q := r.URL.Query()
		if got := q.Get("monitoring_location_id"); got != "USGS-09380000" {
			t.Errorf("monitoring_location_id = %q", got)
		}
		if got := q.Get("parameter_code"); got != "00060" {
			t.Errorf("parameter_code = %q", got)
		}
		if got := q.Get("statistic_id"); got != "00011" {
			t.Errorf("statistic_id = %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "key1" {
			t.Errorf("X-Api-Key = %q, want key1", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(bodyOK))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("key1", "key2"))
	out := c.Fetch(context.Background(), testGauge())

	if !out.OK {
		t.Fatalf("Fetch() failed: kind=%s err=%v", out.Kind, out.Err)
	}
	if out.Value != 12.4 {
		t.Fatalf("Value = %v, want 12.4", out.Value)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
}

func TestFetch_CredentialFailover(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("X-Api-Key") == "bad-primary" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(bodyOK))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("bad-primary", "good-backup"))
	out := c.Fetch(context.Background(), testGauge())

	if !out.OK {
		t.Fatalf("Fetch() failed after failover: kind=%s err=%v", out.Kind, out.Err)
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("requests = %d, want exactly 2 (one per credential)", n)
	}
}

func TestFetch_AuthExhausted(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("k1", "k2"))
	out := c.Fetch(context.Background(), testGauge())

	if out.OK || out.Kind != domain.FailAuthExhausted {
		t.Fatalf("outcome = %+v, want AuthExhausted", out)
	}
	if n := requests.Load(); n > 2 {
		t.Fatalf("requests = %d, want at most 2", n)
	}
}

func TestFetch_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.FailureKind
	}{
		{"empty features means no data", http.StatusOK, `{"features":[]}`, domain.FailNoData},
		{"null value means no data", http.StatusOK, `{"features":[{"properties":{"value":null}}]}`, domain.FailNoData},
		{"malformed json", http.StatusOK, `{"features":[`, domain.FailParseError},
		{"non-numeric value", http.StatusOK, `{"features":[{"properties":{"value":"wet"}}]}`, domain.FailParseError},
		{"server error is transport", http.StatusBadGateway, "", domain.FailTransport},
		{"not found is transport", http.StatusNotFound, "", domain.FailTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				requests.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, creds.NewPool("k1", "k2"))
			out := c.Fetch(context.Background(), testGauge())

			if out.OK || out.Kind != tt.wantKind {
				t.Fatalf("outcome = %+v, want kind %s", out, tt.wantKind)
			}
			// Only auth-class responses trigger another request.
			if n := requests.Load(); n != 1 {
				t.Fatalf("requests = %d, want 1 (no blind retries)", n)
			}
		})
	}
}

func TestFetch_ValueShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"bare number", `{"features":[{"properties":{"value":88.1}}]}`, 88.1},
		{"numeric string", `{"features":[{"properties":{"value":"88.1"}}]}`, 88.1},
		{"nested object", `{"features":[{"properties":{"value":{"value":88.1}}}]}`, 88.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, creds.NewPool("k1", ""))
			out := c.Fetch(context.Background(), testGauge())
			if !out.OK || out.Value != tt.want {
				t.Fatalf("outcome = %+v, want value %v", out, tt.want)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(bodyOK))
	}))
	defer srv.Close()

	c, err := New(srv.URL, creds.NewPool("k1", ""), &http.Client{Timeout: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	out := c.Fetch(context.Background(), testGauge())
	if out.OK || out.Kind != domain.FailTransport {
		t.Fatalf("outcome = %+v, want Transport failure on timeout", out)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("k1", ""))
	out := c.Fetch(context.Background(), testGauge())
	if out.OK || out.Kind != domain.FailTransport {
		t.Fatalf("outcome = %+v, want Transport failure", out)
	}
}

func TestFetch_AnonymousWithoutKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, present := r.Header["X-Api-Key"]; present {
			t.Error("X-Api-Key header sent without configured credentials")
		}
		w.Write([]byte(bodyOK))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("", ""))
	out := c.Fetch(context.Background(), testGauge())
	if !out.OK {
		t.Fatalf("Fetch() failed: %+v", out)
	}
}

func TestFetch_CapturesRateLimitHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "940")
		w.Header().Set("X-RateLimit-Limit", "1000")
		w.Write([]byte(bodyOK))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, creds.NewPool("k1", ""))
	out := c.Fetch(context.Background(), testGauge())

	rl, ok := out.RateLimits["primary"]
	if !ok {
		t.Fatal("no rate limit recorded for primary credential")
	}
	if rl.Remaining != 940 || rl.Limit != 1000 || rl.Used() != 60 {
		t.Fatalf("rate limit = %+v", rl)
	}
}
