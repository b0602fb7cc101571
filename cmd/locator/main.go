package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/config"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/health"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/router"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/server"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/hotness"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/hotness/expdecay"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/logger"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/metrics"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/registry"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store/pgstore"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store/redisstore"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/updates"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Service:   "locator",
		Component: "main",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)
	slog.SetDefault(appLog)

	appLog.Info("starting locator",
		"addr", cfg.Addr,
		"version", Version,
		"store", cfg.Store.Driver,
		"vertical_search", cfg.Build.VerticalSearch.String(),
		"updates", cfg.Updates.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prov *metrics.Provider
	if cfg.Metrics.Enabled {
		prov = metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(prov.Registerer(), true)
		observability.ExposeBuildInfo(Version)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		appLog.Error("store setup failed", "err", err)
		return 1
	}
	if st != nil {
		defer func() {
			if err := st.Close(); err != nil {
				appLog.Warn("store close", "err", err)
			}
		}()
	}

	hot := hotness.NewObserved(expdecay.New(cfg.HotHalfLife),
		hotness.WithLogger(appLog),
		hotness.WithThreshold(cfg.HotThreshold, 0.01))
	go hot.RunPruner(ctx, cfg.HotPruneEvery, cfg.HotPruneBelow)

	regOpts := []registry.Option{
		registry.WithHotness(hot),
		registry.WithBuildOptions(cfg.SlabOptions()...),
		registry.WithStoreTimeout(cfg.Store.OpTimeout),
		registry.WithLogger(appLog),
	}
	if st != nil {
		regOpts = append(regOpts, registry.WithStore(st))
	}
	reg := registry.New(regOpts...)

	n, err := reg.Load(ctx)
	if err != nil {
		appLog.Error("initial load failed", "err", err)
		return 1
	}
	appLog.Info("subdivisions loaded", "count", n)

	var runnerOpts updates.Options
	runnerOpts.Logger = appLog
	if prov != nil {
		runnerOpts.Register = prov.Registerer()
	}
	runner := updates.New(cfg.Updates, reg, runnerOpts)
	if err := runner.Start(ctx); err != nil {
		appLog.Error("update runner start failed", "err", err)
		return 1
	}
	defer runner.Stop()

	deps := server.Deps{
		API: router.New(appLog, reg, router.Limits{
			MaxBatchPoints:   cfg.MaxBatchPoints,
			MaxDocumentBytes: cfg.MaxDocumentBytes,
		}),
		Ready: health.Readiness(reg, runner),
	}
	if prov != nil {
		if cfg.Metrics.Addr != "" {
			go func() {
				if err := prov.Serve(ctx, cfg.Metrics.Addr); err != nil {
					appLog.Error("metrics server exited", "err", err)
				}
			}()
		} else {
			deps.Metrics = prov.Handler()
			deps.MetricsPath = prov.Path()
		}
	}

	if err := server.Run(ctx, cfg.Addr, appLog, server.Routes(appLog, deps)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func openStore(ctx context.Context, c config.StoreCfg) (store.Interface, error) {
	switch c.Driver {
	case store.DriverRedis:
		cli, err := redisstore.New(ctx, c.RedisAddr,
			redisstore.WithReadTimeout(c.OpTimeout),
			redisstore.WithWriteTimeout(c.OpTimeout),
			redisstore.WithPassword(c.RedisPassword),
			redisstore.WithDB(c.RedisDB),
			redisstore.WithPoolSize(c.RedisPoolSize))
		if err != nil {
			return nil, err
		}
		return redisstore.NewDocumentStore(cli), nil
	case store.DriverPostgres:
		sctx, cancel := context.WithTimeout(ctx, c.OpTimeout*5)
		defer cancel()
		s, err := pgstore.Open(sctx, c.PGDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}
