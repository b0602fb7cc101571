// Package registry serves named, revisioned slab locators.
//
// Readers take a snapshot of the name→entry map through an atomic pointer and
// never block. Writers build the new locator outside the lock, then persist
// and swap a fresh copy of the map under a mutex.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/hotness"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store/keys"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

var (
	ErrNotFound      = store.ErrNotFound
	ErrStaleRevision = errors.New("stale revision")
)

// Entry is one published subdivision. Entries are never modified after they
// are published.
type Entry struct {
	Name     string
	Revision uint64
	Locator  *slab.Locator
	Doc      subdivision.Document
	BuiltAt  time.Time
}

type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[map[string]*Entry]
	loaded  atomic.Bool

	store     store.Interface
	hot       hotness.Interface
	buildOpts []slab.Option
	opTimeout time.Duration
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Registry)

// WithStore persists every change and enables Load.
func WithStore(s store.Interface) Option { return func(r *Registry) { r.store = s } }

func WithHotness(h hotness.Interface) Option { return func(r *Registry) { r.hot = h } }

func WithBuildOptions(opts ...slab.Option) Option {
	return func(r *Registry) { r.buildOpts = append(r.buildOpts, opts...) }
}

// WithStoreTimeout bounds each store call. Zero leaves the caller's context as is.
func WithStoreTimeout(d time.Duration) Option { return func(r *Registry) { r.opTimeout = d } }

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{log: slog.Default(), now: time.Now}
	for _, f := range opts {
		f(r)
	}
	empty := map[string]*Entry{}
	r.entries.Store(&empty)
	return r
}

func (r *Registry) snapshot() map[string]*Entry { return *r.entries.Load() }

func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.snapshot()[name]
	return e, ok
}

// List returns the published entries ordered by name.
func (r *Registry) List() []*Entry {
	m := r.snapshot()
	out := make([]*Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int { return len(r.snapshot()) }

// Ready reports whether Load has completed.
func (r *Registry) Ready() bool { return r.loaded.Load() }

func (r *Registry) build(doc subdivision.Document) (*Entry, error) {
	start := time.Now()
	loc, err := doc.Build(r.buildOpts...)
	observability.ObserveBuild(err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return &Entry{
		Name:     doc.Name,
		Revision: doc.Revision,
		Locator:  loc,
		Doc:      doc,
		BuiltAt:  r.now().UTC(),
	}, nil
}

// Replace builds doc and publishes it under doc.Name. It reports whether the
// name was new. A revision not greater than the published one fails with
// ErrStaleRevision and leaves the registry unchanged.
func (r *Registry) Replace(ctx context.Context, doc subdivision.Document) (*Entry, bool, error) {
	e, err := r.build(doc)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	old, exists := cur[doc.Name]
	if exists && doc.Revision <= old.Revision {
		return nil, false, fmt.Errorf("subdivision %q revision %d, published %d: %w",
			doc.Name, doc.Revision, old.Revision, ErrStaleRevision)
	}

	if r.store != nil {
		sctx, cancel := r.storeCtx(ctx)
		err := r.store.Put(sctx, doc)
		cancel()
		if err != nil {
			return nil, false, fmt.Errorf("persist subdivision %q: %w", doc.Name, err)
		}
	}

	// Slab keys are shared across revisions: clear the old counts before
	// the new revision starts recording.
	if exists {
		r.resetHot(old)
	}
	r.swap(cur, doc.Name, e)
	r.log.InfoContext(ctx, "subdivision published",
		slog.String("layer", doc.Name),
		slog.Uint64("revision", doc.Revision),
		slog.Int("slabs", e.Locator.NumSlabs()),
		slog.Bool("created", !exists))
	return e, !exists, nil
}

// Delete unpublishes name and removes it from the store.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	old, ok := cur[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if r.store != nil {
		sctx, cancel := r.storeCtx(ctx)
		err := r.store.Delete(sctx, name)
		cancel()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete subdivision %q: %w", name, err)
		}
	}
	r.swap(cur, name, nil)
	r.resetHot(old)
	r.log.InfoContext(ctx, "subdivision deleted", slog.String("layer", name))
	return nil
}

// Load publishes every stored document. Documents that cannot be decoded or
// no longer build are logged and skipped. Ready reports true afterwards, also
// when no store is configured.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.store == nil {
		r.loaded.Store(true)
		return 0, nil
	}
	sctx, cancel := r.storeCtx(ctx)
	docs, err := r.store.List(sctx)
	cancel()
	switch {
	case errors.Is(err, store.ErrUndecodable):
		r.log.WarnContext(ctx, "skipping undecodable stored subdivisions",
			slog.Int("loaded", len(docs)), slog.String("err", err.Error()))
	case err != nil:
		return 0, fmt.Errorf("load subdivisions: %w", err)
	}

	r.mu.Lock()
	next := make(map[string]*Entry, len(docs))
	for k, v := range r.snapshot() {
		next[k] = v
	}
	n := 0
	for _, doc := range docs {
		e, err := r.build(doc)
		if err != nil {
			r.log.WarnContext(ctx, "skipping stored subdivision",
				slog.String("layer", doc.Name), slog.String("err", err.Error()))
			continue
		}
		if old, ok := next[doc.Name]; ok && old.Revision >= doc.Revision {
			continue
		}
		next[doc.Name] = e
		n++
	}
	r.entries.Store(&next)
	observability.SetSubdivisionsLoaded(len(next))
	r.mu.Unlock()

	r.loaded.Store(true)
	return n, nil
}

// swap publishes a copy of cur with name set to e, or removed when e is nil.
// Callers hold r.mu.
func (r *Registry) swap(cur map[string]*Entry, name string, e *Entry) {
	next := make(map[string]*Entry, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	if e == nil {
		delete(next, name)
	} else {
		next[name] = e
	}
	r.entries.Store(&next)
	observability.SetSubdivisionsLoaded(len(next))
}

func (r *Registry) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout > 0 {
		return context.WithTimeout(ctx, r.opTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Registry) resetHot(e *Entry) {
	if r.hot == nil || e == nil {
		return
	}
	r.hot.Reset(keys.SlabKeys(e.Name, e.Locator.NumSlabs())...)
}
