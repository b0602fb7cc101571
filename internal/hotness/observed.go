package hotness

import (
	"context"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
)

// Observed keeps the hot_slabs gauge in step with the wrapped tracker and
// logs a sample of keys whose score crosses Threshold.
type Observed struct {
	inner     Interface
	log       *slog.Logger
	threshold float64
	sample    float64
}

type ObservedOption func(*Observed)

func WithThreshold(score, sample float64) ObservedOption {
	return func(o *Observed) {
		o.threshold = score
		o.sample = sample
	}
}

func WithLogger(l *slog.Logger) ObservedOption {
	return func(o *Observed) {
		if l != nil {
			o.log = l
		}
	}
}

func NewObserved(inner Interface, opts ...ObservedOption) *Observed {
	o := &Observed{inner: inner, log: slog.Default()}
	for _, f := range opts {
		f(o)
	}
	return o
}

func (o *Observed) Inc(key string) {
	o.inner.Inc(key)
	if o.threshold > 0 {
		if score := o.inner.Score(key); score >= o.threshold && shouldLog(o.sample, key) {
			o.log.LogAttrs(context.Background(), slog.LevelInfo, "hot slab above threshold",
				slog.String("event", "hotness_threshold"),
				slog.String("slab", key),
				slog.Float64("score", score))
		}
	}
	o.publishSize()
}

func (o *Observed) Score(key string) float64 { return o.inner.Score(key) }

// Scores delegates to the inner tracker when it supports bulk reads.
func (o *Observed) Scores(keys []string) []float64 {
	if b, ok := o.inner.(interface{ Scores([]string) []float64 }); ok {
		return b.Scores(keys)
	}
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = o.inner.Score(k)
	}
	return out
}

func (o *Observed) Reset(keys ...string) {
	o.inner.Reset(keys...)
	o.publishSize()
}

// Prune drops keys scoring below floor when the wrapped tracker supports it
// and returns how many were removed.
func (o *Observed) Prune(floor float64) int {
	p, ok := o.inner.(interface{ Prune(float64) int })
	if !ok {
		return 0
	}
	n := p.Prune(floor)
	o.publishSize()
	return n
}

// RunPruner calls Prune every interval until ctx is done. A non-positive
// interval returns immediately.
func (o *Observed) RunPruner(ctx context.Context, every time.Duration, floor float64) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := o.Prune(floor); n > 0 {
				o.log.LogAttrs(ctx, slog.LevelDebug, "pruned cold slabs",
					slog.Int("removed", n), slog.Float64("floor", floor))
			}
		}
	}
}

func (o *Observed) publishSize() {
	if s, ok := o.inner.(Sizer); ok {
		observability.SetHotSlabs(s.Size())
	}
}

// shouldLog samples deterministically by key hash so a hot key logs either
// always or never for a given rate.
func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	return xxhash.Sum64String(key)%denom < threshold
}
