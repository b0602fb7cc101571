package registry

import (
	"fmt"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store/keys"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

// Locate answers one query against the published revision of name.
func (r *Registry) Locate(name string, x, y float64) (*Entry, slab.Location, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, slab.Location{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	start := time.Now()
	loc := e.Locator.LocateDetail(x, y)
	observability.ObserveLocateDuration(time.Since(start).Seconds())
	r.record(e.Name, loc)
	return e, loc, nil
}

// LocateBatch answers every point against the same revision.
func (r *Registry) LocateBatch(name string, pts [][2]float64) (*Entry, []slab.Location, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	start := time.Now()
	out := make([]slab.Location, len(pts))
	for i, p := range pts {
		out[i] = e.Locator.LocateDetail(p[0], p[1])
	}
	observability.ObserveLocateDuration(time.Since(start).Seconds())
	for _, loc := range out {
		r.record(e.Name, loc)
	}
	return e, out, nil
}

func (r *Registry) record(name string, loc slab.Location) {
	observability.IncLocate(loc.Kind.String())
	if r.hot != nil && loc.Slab >= 0 {
		r.hot.Inc(keys.SlabKey(name, loc.Slab))
	}
}

// SlabHotness returns the decayed query score of every slab of e.
func (r *Registry) SlabHotness(e *Entry) []float64 {
	n := e.Locator.NumSlabs()
	if r.hot == nil {
		return make([]float64, n)
	}
	ks := keys.SlabKeys(e.Name, n)
	if b, ok := r.hot.(interface{ Scores([]string) []float64 }); ok {
		return b.Scores(ks)
	}
	out := make([]float64, n)
	for i, k := range ks {
		out[i] = r.hot.Score(k)
	}
	return out
}
