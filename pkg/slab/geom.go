package slab

import "math"

// heightAt evaluates the line through p1 and p2 at x. A vertical segment
// reports its upper endpoint.
func heightAt(p1, p2 Point, x float64) float64 {
	if p1.X == p2.X {
		return math.Max(p1.Y, p2.Y)
	}
	slope := (p2.Y - p1.Y) / (p2.X - p1.X)
	return p1.Y + slope*(x-p1.X)
}

func (e SlabEdge) heightAt(x float64) float64 {
	return heightAt(e.Left, e.Right, x)
}

// leftFirst orders two endpoints by x.
func leftFirst(a, b Point) (Point, Point) {
	if a.X > b.X {
		return b, a
	}
	return a, b
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
