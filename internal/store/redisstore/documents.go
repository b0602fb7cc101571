package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store/keys"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

// DocumentStore keeps each document as JSON under keys.DocKey and tracks
// names in the keys.IndexKey set. Documents never expire.
type DocumentStore struct {
	cli *Client
}

var _ store.Interface = (*DocumentStore)(nil)

func NewDocumentStore(cli *Client) *DocumentStore {
	return &DocumentStore{cli: cli}
}

func (s *DocumentStore) Put(ctx context.Context, doc subdivision.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %q: %w", doc.Name, err)
	}
	return s.cli.SetAndIndex(ctx, keys.DocKey(doc.Name), b, keys.IndexKey, doc.Name)
}

func (s *DocumentStore) Delete(ctx context.Context, name string) error {
	existed, err := s.cli.DelAndUnindex(ctx, keys.DocKey(name), keys.IndexKey, name)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%q: %w", name, store.ErrNotFound)
	}
	return nil
}

// List returns all indexed documents sorted by name. Index members whose
// document is gone are skipped. Documents that fail to decode are left out
// and reported together in an error wrapping store.ErrUndecodable.
func (s *DocumentStore) List(ctx context.Context) ([]subdivision.Document, error) {
	names, err := s.cli.Members(ctx, keys.IndexKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	ks := make([]string, len(names))
	for i, n := range names {
		ks[i] = keys.DocKey(n)
	}
	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, err
	}

	out := make([]subdivision.Document, 0, len(raw))
	var bad []error
	for i, n := range names {
		b, ok := raw[ks[i]]
		if !ok {
			continue
		}
		doc, err := subdivision.Parse(b)
		if err != nil {
			bad = append(bad, fmt.Errorf("stored %q: %w: %w", n, store.ErrUndecodable, err))
			continue
		}
		out = append(out, doc)
	}
	return out, errors.Join(bad...)
}

func (s *DocumentStore) Close() error {
	return s.cli.Close()
}
