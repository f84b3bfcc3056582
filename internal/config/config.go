// Package config resolves exporter settings (ENV > CLI > defaults) and loads
// the YAML gauge registry.
package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

const (
	defaultListenAddr = ":8000"
	defaultGaugesFile = "/config/usgs_gauges.yaml"
	defaultAPIURL     = "https://api.waterdata.usgs.gov/ogcapi/v0/collections/latest-continuous/items"
	defaultMaxWorkers = 10
	defaultTimeoutSec = 10
)

// Config holds every process-level setting. Immutable after Load.
type Config struct {
	// ListenAddr is the address the metrics endpoint binds to.
	ListenAddr string
	// GaugesFile is the path of the YAML gauge registry.
	GaugesFile string
	// APIURL is the USGS latest-continuous items endpoint.
	APIURL string
	// APIKeyPrimary and APIKeyBackup feed the credential pool; both optional.
	APIKeyPrimary string
	APIKeyBackup  string
	// MaxWorkers bounds concurrent upstream requests per poll cycle.
	MaxWorkers int
	// RequestTimeout bounds each individual gauge fetch.
	RequestTimeout time.Duration
}

// Load resolves the exporter configuration. ENV > CLI > defaults.
func Load(args []string, out io.Writer) (Config, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("exporter", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var fileOpt string
	var urlOpt string
	var workersOpt int
	var timeoutOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("listen address, default: %s", defaultListenAddr))
	fs.StringVar(&fileOpt, "g", "", fmt.Sprintf("gauge registry YAML file, default: %s", defaultGaugesFile))
	fs.StringVar(&urlOpt, "u", "", "USGS API items URL")
	fs.IntVar(&workersOpt, "w", 0, fmt.Sprintf("max concurrent gauge fetches, default: %d", defaultMaxWorkers))
	fs.IntVar(&timeoutOpt, "t", 0, fmt.Sprintf("per-request timeout in seconds, default: %d", defaultTimeoutSec))

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	apiURL := FromEnvOrFlag("USGS_API_URL", urlOpt, defaultAPIURL)
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return Config{}, fmt.Errorf("invalid api url: %q", apiURL)
	}

	cfg := Config{
		ListenAddr:     FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAddr),
		GaugesFile:     FromEnvOrFlag("GAUGES_FILE", fileOpt, defaultGaugesFile),
		APIURL:         apiURL,
		APIKeyPrimary:  strings.TrimSpace(FromEnvOrFlag("USGS_API_KEY", "", "")),
		APIKeyBackup:   strings.TrimSpace(FromEnvOrFlag("USGS_API_KEY2", "", "")),
		MaxWorkers:     FromEnvOrFlagInt("USGS_MAX_WORKERS", workersOpt, defaultMaxWorkers, 1),
		RequestTimeout: FromEnvOrFlagDuration("REQUEST_TIMEOUT", timeoutOpt, 0, defaultTimeoutSec),
	}

	if cfg.MaxWorkers < 1 {
		return Config{}, fmt.Errorf("max workers must be >= 1, got %d", cfg.MaxWorkers)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("request timeout must be > 0, got %v", cfg.RequestTimeout)
	}
	return cfg, nil
}
