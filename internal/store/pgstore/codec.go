package pgstore

import (
	"encoding/json"
	"fmt"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

func encode(doc subdivision.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pgstore encode %q: %w", doc.Name, err)
	}
	return b, nil
}

func decode(name string, raw []byte) (subdivision.Document, error) {
	doc, err := subdivision.Parse(raw)
	if err != nil {
		return subdivision.Document{}, fmt.Errorf("pgstore stored %q: %w: %w", name, store.ErrUndecodable, err)
	}
	return doc, nil
}
