// Package subdivisiontest provides a small known subdivision for tests.
package subdivisiontest

import (
	"encoding/json"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

// Reference returns a nine-vertex subdivision split into faces "Face 1" to
// "Face 9", bounded above by "Unbounded" edges. Each call returns a fresh copy.
func Reference(name string, revision uint64) subdivision.Document {
	return subdivision.Document{
		Name:     name,
		Revision: revision,
		Vertices: [][2]float64{
			{0, 4}, {2, 8}, {2, 2}, {5, 6}, {5, 3},
			{8, 9}, {8, 5}, {8, 1}, {11, 4},
		},
		Edges: []subdivision.Edge{
			{From: 0, To: 1, Face: "Unbounded"},
			{From: 1, To: 5, Face: "Unbounded"},
			{From: 5, To: 8, Face: "Unbounded"},
			{From: 2, To: 0, Face: "Face 2"},
			{From: 7, To: 2, Face: "Face 8"},
			{From: 8, To: 7, Face: "Face 9"},
			{From: 0, To: 3, Face: "Face 1"},
			{From: 0, To: 4, Face: "Face 3"},
			{From: 1, To: 3, Face: "Face 5"},
			{From: 2, To: 4, Face: "Face 2"},
			{From: 3, To: 5, Face: "Face 5"},
			{From: 3, To: 6, Face: "Face 6"},
			{From: 4, To: 6, Face: "Face 4"},
			{From: 4, To: 7, Face: "Face 9"},
			{From: 6, To: 8, Face: "Face 7"},
		},
	}
}

// ReferenceJSON is Reference encoded as a request body.
func ReferenceJSON(name string, revision uint64) []byte {
	b, _ := json.Marshal(Reference(name, revision))
	return b
}

// Degenerate returns a document whose vertices all share one x-coordinate.
func Degenerate(name string, revision uint64) subdivision.Document {
	return subdivision.Document{
		Name:     name,
		Revision: revision,
		Vertices: [][2]float64{{3, 0}, {3, 1}},
		Edges:    []subdivision.Edge{{From: 0, To: 1, Face: "A"}},
	}
}
