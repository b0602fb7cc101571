// Package model defines the request and response bodies of the HTTP API.
package model

import "time"

type LocateRequest struct {
	Layer string
	X, Y  float64
}

type LocateResponse struct {
	Layer    string  `json:"layer"`
	Revision uint64  `json:"revision"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Face     string  `json:"face"`
	Kind     string  `json:"kind"`
	Slab     int     `json:"slab"`
}

type BatchRequest struct {
	Layer  string       `json:"layer"`
	Points [][2]float64 `json:"points"`
}

type BatchResult struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Face string  `json:"face"`
	Kind string  `json:"kind"`
}

type BatchResponse struct {
	Layer    string        `json:"layer"`
	Revision uint64        `json:"revision"`
	Results  []BatchResult `json:"results"`
}

type SubdivisionSummary struct {
	Name       string    `json:"name"`
	Revision   uint64    `json:"revision"`
	BuiltAt    time.Time `json:"built_at"`
	Slabs      int       `json:"slabs"`
	Entries    int       `json:"entries"`
	MaxPerSlab int       `json:"max_per_slab"`
	Vertical   int       `json:"vertical_edges"`
}

type SlabEdgeView struct {
	Face  string     `json:"face"`
	MidY  float64    `json:"mid_y"`
	Left  [2]float64 `json:"left"`
	Right [2]float64 `json:"right"`
}

type SlabView struct {
	Index   int            `json:"index"`
	Start   float64        `json:"start"`
	End     float64        `json:"end"`
	Hotness float64        `json:"hotness"`
	Edges   []SlabEdgeView `json:"edges"`
}

type SlabsResponse struct {
	Name     string     `json:"name"`
	Revision uint64     `json:"revision"`
	XCoords  []float64  `json:"xs"`
	Slabs    []SlabView `json:"slabs"`
}
