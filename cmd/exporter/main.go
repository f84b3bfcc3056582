// Command exporter serves USGS streamflow readings as Prometheus metrics.
// Every scrape of /metrics triggers one poll cycle across all configured
// gauges; there is no internal timer.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hydrowatch/usgs-exporter/internal/adapters/http/ginserver"
	"github.com/hydrowatch/usgs-exporter/internal/adapters/http/ginserver/middlewares"
	"github.com/hydrowatch/usgs-exporter/internal/adapters/prom"
	"github.com/hydrowatch/usgs-exporter/internal/adapters/usgs"
	"github.com/hydrowatch/usgs-exporter/internal/config"
	"github.com/hydrowatch/usgs-exporter/internal/creds"
	"github.com/hydrowatch/usgs-exporter/internal/metrics"
	"github.com/hydrowatch/usgs-exporter/internal/misc"
	"github.com/hydrowatch/usgs-exporter/internal/services/poller"
	"github.com/hydrowatch/usgs-exporter/pkg/util"
)

// Populated through -ldflags at release build time.
var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	util.PrintBuildInfo(buildVersion, buildDate, buildCommit)

	cfg, err := config.Load(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	var logger *zap.Logger
	if misc.GetBool("DEBUG", false) {
		logger, err = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	gauges, err := config.LoadGauges(cfg.GaugesFile)
	if err != nil {
		log.Fatalf("failed to load gauge registry: %v", err)
	}

	pool := creds.NewPool(cfg.APIKeyPrimary, cfg.APIKeyBackup)
	fetcher, err := usgs.New(cfg.APIURL, pool, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	if err != nil {
		log.Fatalf("failed to init api client: %v", err)
	}

	agg := metrics.New(len(gauges))
	coord := poller.New(gauges, fetcher, agg, cfg.MaxWorkers, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prom.NewExporter(gauges, coord, agg, logger))
	if pc, err := prom.NewProcessCollector(); err == nil {
		reg.MustRegister(pc)
	} else {
		logger.Warn("process telemetry unavailable", zap.Error(err))
	}

	h := ginserver.NewHandler(reg, agg, gauges)
	r := ginserver.NewRouter(h, middlewares.ZapLogger(logger))

	logger.Info("exporter started",
		zap.String("addr", cfg.ListenAddr),
		zap.Int("gauges", len(gauges)),
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("credentials", pool.Len()),
	)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatal(err)
	}
}
