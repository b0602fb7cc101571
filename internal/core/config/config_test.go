package config

import (
	"testing"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

var keys = []string{
	"ADDR", "LOG_LEVEL", "LOG_CONSOLE", "LOG_SAMPLE_N", "STORE_DRIVER", "REDIS_ADDR", "PG_DSN",
	"REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE", "HOT_PRUNE_INTERVAL", "HOT_PRUNE_FLOOR",
	"STORE_OP_TIMEOUT", "VERTICAL_SEARCH", "ORDERING_CHECK", "ORDERING_TOLERANCE",
	"MAX_BATCH_POINTS", "MAX_DOCUMENT_BYTES", "HOT_HALF_LIFE", "HOT_THRESHOLD", "UPDATES_ENABLED",
	"METRICS_ENABLED", "METRICS_ADDR", "METRICS_PATH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	c := FromEnv()

	if c.Addr != ":8090" || c.Log.Level != "info" || c.Log.Console {
		t.Fatalf("basic defaults: %+v", c)
	}
	if c.Store.Driver != store.DriverNone || c.Store.OpTimeout != 2*time.Second {
		t.Fatalf("store defaults: %+v", c.Store)
	}
	if c.Store.RedisPassword != "" || c.Store.RedisDB != 0 || c.Store.RedisPoolSize != 16 {
		t.Fatalf("redis defaults: %+v", c.Store)
	}
	if c.HotPruneEvery != time.Minute || c.HotPruneBelow != 0.01 {
		t.Fatalf("prune defaults: every=%v below=%v", c.HotPruneEvery, c.HotPruneBelow)
	}
	if c.Build.VerticalSearch != slab.Binary || c.Build.OrderingCheck {
		t.Fatalf("build defaults: %+v", c.Build)
	}
	if c.MaxBatchPoints != 10000 || c.MaxDocumentBytes != 8<<20 || c.HotHalfLife != time.Minute {
		t.Fatalf("limits: %+v", c)
	}
	if !c.Metrics.Enabled || c.Metrics.Path != "/metrics" || c.Metrics.Addr != "" {
		t.Fatalf("metrics: %+v", c.Metrics)
	}
	if len(c.SlabOptions()) != 1 {
		t.Fatalf("options=%d", len(c.SlabOptions()))
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("STORE_OP_TIMEOUT", "150ms")
	t.Setenv("VERTICAL_SEARCH", "linear")
	t.Setenv("ORDERING_CHECK", "yes")
	t.Setenv("ORDERING_TOLERANCE", "0.5")
	t.Setenv("MAX_BATCH_POINTS", "-3")
	t.Setenv("LOG_SAMPLE_N", "10")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_POOL_SIZE", "0")
	t.Setenv("HOT_PRUNE_INTERVAL", "0s")

	c := FromEnv()
	if c.Store.RedisPassword != "s3cret" || c.Store.RedisDB != 2 || c.Store.RedisPoolSize != 16 {
		t.Fatalf("redis: %+v", c.Store)
	}
	if c.HotPruneEvery != 0 {
		t.Fatalf("prune interval=%v want 0", c.HotPruneEvery)
	}
	if c.Store.Driver != store.DriverRedis || c.Store.OpTimeout != 150*time.Millisecond {
		t.Fatalf("store: %+v", c.Store)
	}
	if c.Build.VerticalSearch != slab.Linear || !c.Build.OrderingCheck || c.Build.OrderingTolerance != 0.5 {
		t.Fatalf("build: %+v", c.Build)
	}
	if c.MaxBatchPoints != 10000 {
		t.Fatalf("non-positive batch limit should fall back, got %d", c.MaxBatchPoints)
	}
	if c.Log.SampleN != 10 || c.Metrics.Enabled {
		t.Fatalf("log/metrics: %+v %+v", c.Log, c.Metrics)
	}
	if len(c.SlabOptions()) != 2 {
		t.Fatalf("options=%d", len(c.SlabOptions()))
	}

	t.Setenv("STORE_DRIVER", "mongo")
	if FromEnv().Store.Driver != store.DriverNone {
		t.Fatal("unknown driver should fall back to none")
	}
}
