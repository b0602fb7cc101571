package slab

import "errors"

var (
	// ErrInvalidGraph reports an edge that references a missing vertex, an
	// empty vertex list or a non-finite coordinate.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrDegenerateSubdivision reports input that cannot form a slab, or edges
	// that cross inside a slab when the ordering check is enabled.
	ErrDegenerateSubdivision = errors.New("degenerate subdivision")
)
