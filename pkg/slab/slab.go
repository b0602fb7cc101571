// Package slab implements slab-decomposition point location over a planar
// straight-line subdivision.
//
// The plane is cut into vertical slabs at every distinct vertex x-coordinate.
// Inside a slab the spanning edges never cross, so they keep one bottom-to-top
// order across the slab's whole width. A query finds its slab with a binary
// search over x and then the highest edge strictly below the point; the face
// above that edge is the answer.
//
// Callers must supply a subdivision whose edges do not cross inside any slab.
// Build does not verify this unless WithOrderingCheck is given.
package slab

import (
	"math"
	"sort"
)

// Face is an opaque, caller-supplied face label.
type Face string

const (
	// OutsideRange is returned for points left of the first or at/right of the
	// last vertex x-coordinate.
	OutsideRange Face = "Unbounded (outside x-range)"
	// BelowAll is returned for points at or below the lowest edge of their slab.
	BelowAll Face = "Unbounded (below everything)"
)

// Point is a vertex position.
type Point struct {
	X, Y float64
}

// Edge joins two vertices by index. Face names the region directly above it.
type Edge struct {
	From int
	To   int
	Face Face
}

// SlabEdge is the slab-local view of an edge: endpoints ordered left to right
// and the edge height at the slab midpoint.
type SlabEdge struct {
	Left  Point
	Right Point
	Face  Face
	MidY  float64
}

// Slab is the half-open strip [Start, End) with its spanning edges sorted
// bottom to top.
type Slab struct {
	Start float64
	End   float64
	Edges []SlabEdge
}

// Kind classifies a query answer.
type Kind uint8

const (
	KindInside Kind = iota
	KindOutsideRange
	KindBelowAll
)

func (k Kind) String() string {
	switch k {
	case KindOutsideRange:
		return "outside_range"
	case KindBelowAll:
		return "below_all"
	default:
		return "inside"
	}
}

// Location is the detailed answer of LocateDetail. Slab and Floor are -1 when
// there is no slab or no edge below the point.
type Location struct {
	Face  Face
	Kind  Kind
	Slab  int
	Floor int
}

// Stats summarises a built structure.
type Stats struct {
	Slabs      int
	Entries    int
	MaxPerSlab int
	Vertical   int
}

// Locator is the immutable point-location structure returned by Build.
// It is safe for concurrent use.
type Locator struct {
	xs     []float64
	slabs  []Slab
	search VerticalSearch
	stats  Stats
}

// Locate returns the face containing (x, y). A point lying exactly on an edge
// belongs to the face below that edge.
func (l *Locator) Locate(x, y float64) Face {
	return l.LocateDetail(x, y).Face
}

// LocateDetail is Locate plus the slab and floor-edge indices that produced
// the answer.
func (l *Locator) LocateDetail(x, y float64) Location {
	i, ok := l.SlabIndex(x)
	if !ok {
		return Location{Face: OutsideRange, Kind: KindOutsideRange, Slab: -1, Floor: -1}
	}
	edges := l.slabs[i].Edges

	var floor int
	if l.search == Linear {
		floor = floorLinear(edges, x, y)
	} else {
		floor = floorBinary(edges, x, y)
	}
	if floor < 0 {
		return Location{Face: BelowAll, Kind: KindBelowAll, Slab: i, Floor: -1}
	}
	return Location{Face: edges[floor].Face, Kind: KindInside, Slab: i, Floor: floor}
}

// SlabIndex returns the index of the slab containing x. It reports false
// outside [xs[0], xs[last]).
func (l *Locator) SlabIndex(x float64) (int, bool) {
	if math.IsNaN(x) {
		return -1, false
	}
	// rightmost i with xs[i] <= x
	i := sort.Search(len(l.xs), func(k int) bool { return l.xs[k] > x }) - 1
	if i < 0 || i >= len(l.xs)-1 {
		return -1, false
	}
	return i, true
}

// XCoords returns a copy of the sorted distinct vertex x-coordinates.
func (l *Locator) XCoords() []float64 {
	out := make([]float64, len(l.xs))
	copy(out, l.xs)
	return out
}

// Slabs returns a deep copy of all slabs.
func (l *Locator) Slabs() []Slab {
	out := make([]Slab, len(l.slabs))
	for i, s := range l.slabs {
		edges := make([]SlabEdge, len(s.Edges))
		copy(edges, s.Edges)
		out[i] = Slab{Start: s.Start, End: s.End, Edges: edges}
	}
	return out
}

func (l *Locator) NumSlabs() int { return len(l.slabs) }

func (l *Locator) Stats() Stats { return l.stats }

// floorLinear scans upward and stops at the first edge the point is not
// strictly above.
func floorLinear(edges []SlabEdge, x, y float64) int {
	floor := -1
	for i := range edges {
		if y > edges[i].heightAt(x) {
			floor = i
			continue
		}
		break
	}
	return floor
}

// floorBinary finds the same edge as floorLinear. Heights at any x inside the
// slab are ordered like the midpoint heights, so "y <= height" is monotone.
func floorBinary(edges []SlabEdge, x, y float64) int {
	ceil := sort.Search(len(edges), func(i int) bool {
		return y <= edges[i].heightAt(x)
	})
	return ceil - 1
}
