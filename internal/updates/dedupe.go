package updates

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// revisionDedupe remembers the last applied revision per layer.
type revisionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newRevisionDedupe(size int) *revisionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &revisionDedupe{lru: c}
}

// stale reports whether rev is behind the last recorded revision. A replace
// at the recorded revision is stale too; a delete at it is not, since it
// targets exactly that revision.
func (d *revisionDedupe) stale(layer string, rev uint64, del bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(layer)
	if !ok {
		return false
	}
	if del {
		return rev < last
	}
	return rev <= last
}

func (d *revisionDedupe) record(layer string, rev uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(layer); ok && last >= rev {
		return
	}
	d.lru.Add(layer, rev)
}
