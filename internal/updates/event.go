// Package updates applies subdivision changes published on a Kafka topic and
// publishes them from the CLI.
package updates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

const (
	OpReplace = "replace"
	OpDelete  = "delete"
)

// Event is the wire format of one change. Subdivision is set for replace only.
type Event struct {
	Version     int                   `json:"version"`
	Op          string                `json:"op"`
	Layer       string                `json:"layer"`
	Revision    uint64                `json:"revision"`
	TS          time.Time             `json:"ts"`
	Subdivision *subdivision.Document `json:"subdivision,omitempty"`
}

func NewReplace(doc subdivision.Document, ts time.Time) Event {
	return Event{Version: 1, Op: OpReplace, Layer: doc.Name, Revision: doc.Revision, TS: ts.UTC(), Subdivision: &doc}
}

func NewDelete(layer string, revision uint64, ts time.Time) Event {
	return Event{Version: 1, Op: OpDelete, Layer: layer, Revision: revision, TS: ts.UTC()}
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return errors.New("version must be 1")
	}
	if strings.TrimSpace(e.Layer) == "" {
		return errors.New("layer is required")
	}
	if e.Revision == 0 {
		return errors.New("revision must be >= 1")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	switch e.Op {
	case OpReplace:
		d := e.Subdivision
		if d == nil {
			return errors.New("replace requires subdivision")
		}
		if d.Name != e.Layer {
			return fmt.Errorf("subdivision name %q does not match layer %q", d.Name, e.Layer)
		}
		if d.Revision != e.Revision {
			return fmt.Errorf("subdivision revision %d does not match event revision %d", d.Revision, e.Revision)
		}
	case OpDelete:
		if e.Subdivision != nil {
			return errors.New("delete must not carry a subdivision")
		}
	default:
		return errors.New("op must be replace|delete")
	}
	return nil
}
