// Package dedup suppresses re-notification for names seen recently,
// bounding memory with an LRU cache rather than persistence.
package dedup

import (
	"sync"
	"time"

	"github.com/ctwarden/ctwarden/internal/cache"
)

// Deduplicator answers "have I admitted this name recently?" It never
// guarantees exactly-once — that guarantee lives in the persistence
// layer's unique constraint — it only reduces pipeline load.
type Deduplicator struct {
	mu     sync.Mutex
	seen   *cache.TTLCache[string, struct{}]
	window time.Duration
}

// New creates a Deduplicator bounded at maxEntries, suppressing repeat
// admissions for window (the dedup window needs to outlast one CT batch
// burst, not outlast a full persistence cycle).
func New(maxEntries int, window time.Duration) *Deduplicator {
	return &Deduplicator{
		seen:   cache.New[string, struct{}](maxEntries, window, 0),
		window: window,
	}
}

// Admit returns true the first time name is seen within the current
// window, false on every subsequent call until the entry is evicted.
func (d *Deduplicator) Admit(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, found, _ := d.seen.Get(name); found {
		return false
	}
	d.seen.Set(name, struct{}{}, d.window, cache.Positive)
	return true
}

// Preload marks names as already-admitted, used by the orchestrator to
// seed the cache from recent persisted rows on cold start so a restart
// does not immediately re-notify for names still within the window.
func (d *Deduplicator) Preload(names []string) {
	for _, n := range names {
		d.seen.Set(n, struct{}{}, d.window, cache.Positive)
	}
}

// Size returns the number of entries currently held.
func (d *Deduplicator) Size() int {
	return d.seen.Len()
}
