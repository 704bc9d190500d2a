package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/geobuffer/internal/cache/exportcache"
	"github.com/mohammed-shakir/geobuffer/internal/cache/redisstore"
	"github.com/mohammed-shakir/geobuffer/internal/core/config"
	"github.com/mohammed-shakir/geobuffer/internal/core/health"
	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/core/router"
	"github.com/mohammed-shakir/geobuffer/internal/core/server"
	"github.com/mohammed-shakir/geobuffer/internal/logger"
	h3mapper "github.com/mohammed-shakir/geobuffer/internal/mapper/h3"
	"github.com/mohammed-shakir/geobuffer/internal/metrics"
	"github.com/mohammed-shakir/geobuffer/internal/session"
	"github.com/mohammed-shakir/geobuffer/internal/sessionevents"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "geobuffer",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	shape, err := model.ParseBufferShape(cfg.BufferShape)
	if err != nil {
		appLog.Error("invalid DEFAULT_BUFFER_SHAPE", "err", err)
		return 1
	}
	defaults := model.BufferConfig{Shape: shape, Distance: cfg.BufferDistance, Unit: model.UnitMeters}

	appLog.Info("starting geobuffer",
		"addr", cfg.Addr,
		"version", Version,
		"shape", defaults.Shape,
		"distance", defaults.Distance,
		"export_cache", cfg.ExportCache.Enabled,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cells := h3mapper.New()

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
			Runtime: metrics.RuntimeInfo{
				DefaultH3Res:       cfg.H3Res,
				CoverageCellBudget: cells.MaxCoverageCells,
				ExportCache:        cfg.ExportCache.Enabled,
				Events:             cfg.Events.Enabled,
			},
		})
		metricsHandler = p.Handler()
	}

	ready := map[string]health.Pinger{}
	var exports *exportcache.Cache
	if cfg.ExportCache.Enabled {
		rc, err := redisstore.New(ctx, cfg.ExportCache.RedisAddr, redisstore.WithDialTimeout(2*time.Second))
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.ExportCache.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		exports = exportcache.New(rc, cfg.ExportCache.TTL, cfg.ExportCache.OpTimeout, appLog)
		ready["redis"] = rc
	}

	var events sessionevents.Publisher = sessionevents.Nop{}
	if cfg.Events.Enabled {
		kp, err := sessionevents.NewKafka(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.QueueSize, appLog)
		if err != nil {
			appLog.Error("kafka producer setup failed", "brokers", cfg.Events.Brokers, "err", err)
			return 1
		}
		events = kp
	}
	defer closeEvents(appLog, events)

	mgr, err := session.NewManager(session.Options{
		MaxSessions:   cfg.SessionMax,
		DefaultConfig: defaults,
		Events:        events,
		Exports:       exports,
		Logger:        appLog,
	})
	if err != nil {
		appLog.Error("session manager setup failed", "err", err)
		return 1
	}

	deps := server.Deps{
		API:     router.New(mgr, cells, cfg.H3Res, appLog),
		Metrics: metricsHandler,
		Ready:   ready,
	}
	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func closeEvents(log *slog.Logger, p sessionevents.Publisher) {
	if err := p.Close(); err != nil {
		log.Warn("session events close", "err", err)
	}
}
