// Package config reads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/updates"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type StoreCfg struct {
	Driver        store.Driver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	PGDSN         string
	OpTimeout     time.Duration
}

type BuildCfg struct {
	VerticalSearch    slab.VerticalSearch
	OrderingCheck     bool
	OrderingTolerance float64
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr string
	Log  LogCfg

	Store StoreCfg
	Build BuildCfg

	MaxBatchPoints   int
	MaxDocumentBytes int64

	HotHalfLife   time.Duration
	HotThreshold  float64
	HotPruneEvery time.Duration
	HotPruneBelow float64

	Updates updates.Config
	Metrics MetricsCfg
}

func FromEnv() Config {
	driver := store.Driver(strings.ToLower(getenv("STORE_DRIVER", string(store.DriverNone))))
	switch driver {
	case store.DriverNone, store.DriverRedis, store.DriverPostgres:
	default:
		driver = store.DriverNone
	}

	maxBatch := getint("MAX_BATCH_POINTS", 10000)
	if maxBatch <= 0 {
		maxBatch = 10000
	}
	maxDoc := getint64("MAX_DOCUMENT_BYTES", 8<<20)
	if maxDoc <= 0 {
		maxDoc = 8 << 20
	}
	pool := getint("REDIS_POOL_SIZE", 16)
	if pool <= 0 {
		pool = 16
	}
	tol := getfloat("ORDERING_TOLERANCE", 1e-9)
	if tol < 0 {
		tol = 0
	}

	return Config{
		Addr: getenv("ADDR", ":8090"),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		Store: StoreCfg{
			Driver:        driver,
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getint("REDIS_DB", 0),
			RedisPoolSize: pool,
			PGDSN:         getenv("PG_DSN", ""),
			OpTimeout:     getduration("STORE_OP_TIMEOUT", 2*time.Second),
		},
		Build: BuildCfg{
			VerticalSearch:    slab.ParseVerticalSearch(strings.ToLower(getenv("VERTICAL_SEARCH", "binary"))),
			OrderingCheck:     getbool("ORDERING_CHECK", false),
			OrderingTolerance: tol,
		},
		MaxBatchPoints:   maxBatch,
		MaxDocumentBytes: maxDoc,
		HotHalfLife:      getduration("HOT_HALF_LIFE", time.Minute),
		HotThreshold:     getfloat("HOT_THRESHOLD", 0),
		HotPruneEvery:    getduration("HOT_PRUNE_INTERVAL", time.Minute),
		HotPruneBelow:    getfloat("HOT_PRUNE_FLOOR", 0.01),
		Updates:          updates.FromEnv(),
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Addr:    getenv("METRICS_ADDR", ""),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// SlabOptions turns the build settings into builder options.
func (c Config) SlabOptions() []slab.Option {
	opts := []slab.Option{slab.WithVerticalSearch(c.Build.VerticalSearch)}
	if c.Build.OrderingCheck {
		opts = append(opts, slab.WithOrderingCheck(c.Build.OrderingTolerance))
	}
	return opts
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
