// Package subdivision defines the JSON document a caller uses to describe a
// planar subdivision, and turns it into a slab locator.
package subdivision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

type Edge struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Face string `json:"face"`
}

// Document is one named, revisioned subdivision. Vertices are [x, y] pairs
// addressed by index from Edges.
type Document struct {
	Name     string       `json:"name"`
	Revision uint64       `json:"revision"`
	Vertices [][2]float64 `json:"vertices"`
	Edges    []Edge       `json:"edges"`
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// ValidName reports whether s can name a subdivision.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// Decode reads one document and rejects unknown fields.
func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return Document{}, fmt.Errorf("decode subdivision: %w", err)
	}
	return d, nil
}

func Parse(b []byte) (Document, error) {
	return Decode(bytes.NewReader(b))
}

// Validate checks the document envelope. Graph-level checks (vertex indices,
// distinct x-coordinates) are left to slab.Build so both error kinds come from
// one place.
func (d Document) Validate() error {
	if !ValidName(d.Name) {
		return fmt.Errorf("invalid name %q", d.Name)
	}
	if d.Revision == 0 {
		return errors.New("revision must be >= 1")
	}
	if len(d.Vertices) == 0 {
		return errors.New("vertices are required")
	}
	for i, e := range d.Edges {
		if strings.TrimSpace(e.Face) == "" {
			return fmt.Errorf("edge %d: face is required", i)
		}
	}
	return nil
}

// Graph converts the document into builder input.
func (d Document) Graph() ([]slab.Point, []slab.Edge) {
	vs := make([]slab.Point, len(d.Vertices))
	for i, v := range d.Vertices {
		vs[i] = slab.Point{X: v[0], Y: v[1]}
	}
	es := make([]slab.Edge, len(d.Edges))
	for i, e := range d.Edges {
		es[i] = slab.Edge{From: e.From, To: e.To, Face: slab.Face(e.Face)}
	}
	return vs, es
}

// Build validates the document and preprocesses it.
func (d Document) Build(opts ...slab.Option) (*slab.Locator, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("subdivision %q: %w: %w", d.Name, err, slab.ErrInvalidGraph)
	}
	vs, es := d.Graph()
	l, err := slab.Build(vs, es, opts...)
	if err != nil {
		return nil, fmt.Errorf("subdivision %q: %w", d.Name, err)
	}
	return l, nil
}
