package slab

import (
	"fmt"
	"sort"
)

// VerticalSearch selects how Locate searches the edges of one slab.
type VerticalSearch uint8

const (
	Binary VerticalSearch = iota
	Linear
)

func (v VerticalSearch) String() string {
	if v == Linear {
		return "linear"
	}
	return "binary"
}

// ParseVerticalSearch accepts "binary" or "linear"; anything else is Binary.
func ParseVerticalSearch(s string) VerticalSearch {
	if s == "linear" {
		return Linear
	}
	return Binary
}

type options struct {
	search    VerticalSearch
	checkTol  float64
	checkEdge bool
}

type Option func(*options)

func WithVerticalSearch(v VerticalSearch) Option {
	return func(o *options) { o.search = v }
}

// WithOrderingCheck re-evaluates every adjacent pair of slab edges at both slab
// boundaries and fails the build when the lower edge rises above the upper one
// by more than tol.
func WithOrderingCheck(tol float64) Option {
	return func(o *options) {
		if tol < 0 {
			tol = 0
		}
		o.checkEdge = true
		o.checkTol = tol
	}
}

// Build preprocesses the subdivision into a Locator.
//
// Vertical edges are dropped: they lie on a slab boundary and never separate
// faces inside a slab. The inputs are not retained.
func Build(vertices []Point, edges []Edge, opts ...Option) (*Locator, error) {
	o := options{search: Binary}
	for _, f := range opts {
		f(&o)
	}

	if len(vertices) == 0 {
		return nil, fmt.Errorf("no vertices: %w", ErrInvalidGraph)
	}
	for i, v := range vertices {
		if !finite(v) {
			return nil, fmt.Errorf("vertex %d has non-finite coordinate (%g, %g): %w", i, v.X, v.Y, ErrInvalidGraph)
		}
	}
	for i, e := range edges {
		if e.From < 0 || e.From >= len(vertices) {
			return nil, fmt.Errorf("edge %d: from vertex %d out of range [0,%d): %w", i, e.From, len(vertices), ErrInvalidGraph)
		}
		if e.To < 0 || e.To >= len(vertices) {
			return nil, fmt.Errorf("edge %d: to vertex %d out of range [0,%d): %w", i, e.To, len(vertices), ErrInvalidGraph)
		}
	}

	xs := distinctX(vertices)
	if len(xs) < 2 {
		return nil, fmt.Errorf("need at least 2 distinct x-coordinates, got %d: %w", len(xs), ErrDegenerateSubdivision)
	}

	slabs := make([]Slab, len(xs)-1)
	for i := range slabs {
		slabs[i] = Slab{Start: xs[i], End: xs[i+1]}
	}

	var st Stats
	for _, e := range edges {
		p1, p2 := leftFirst(vertices[e.From], vertices[e.To])
		if p1.X == p2.X {
			st.Vertical++
			continue
		}
		// endpoints are vertices, so both x values are present in xs
		first := sort.SearchFloat64s(xs, p1.X)
		last := sort.SearchFloat64s(xs, p2.X) - 1
		for i := first; i <= last; i++ {
			mid := (slabs[i].Start + slabs[i].End) / 2
			slabs[i].Edges = append(slabs[i].Edges, SlabEdge{
				Left:  p1,
				Right: p2,
				Face:  e.Face,
				MidY:  heightAt(p1, p2, mid),
			})
		}
	}

	for i := range slabs {
		es := slabs[i].Edges
		sort.SliceStable(es, func(a, b int) bool { return es[a].MidY < es[b].MidY })
		st.Entries += len(es)
		if len(es) > st.MaxPerSlab {
			st.MaxPerSlab = len(es)
		}
		if o.checkEdge {
			if err := checkOrdering(i, slabs[i], o.checkTol); err != nil {
				return nil, err
			}
		}
	}
	st.Slabs = len(slabs)

	return &Locator{xs: xs, slabs: slabs, search: o.search, stats: st}, nil
}

func distinctX(vertices []Point) []float64 {
	xs := make([]float64, 0, len(vertices))
	for _, v := range vertices {
		xs = append(xs, v.X)
	}
	sort.Float64s(xs)
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

func checkOrdering(idx int, s Slab, tol float64) error {
	for k := 0; k+1 < len(s.Edges); k++ {
		lo, hi := s.Edges[k], s.Edges[k+1]
		for _, x := range [2]float64{s.Start, s.End} {
			if lo.heightAt(x) > hi.heightAt(x)+tol {
				return fmt.Errorf("slab %d [%g,%g): edges %q and %q cross at x=%g: %w",
					idx, s.Start, s.End, lo.Face, hi.Face, x, ErrDegenerateSubdivision)
			}
		}
	}
	return nil
}
