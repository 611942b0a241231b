package gitfs

import (
	"sync"
	"time"

	"github.com/marldb/marl/pkg/core"
)

// cacheEntry holds one parsed collection and the file state it came from.
type cacheEntry struct {
	collection core.Collection
	token      core.VersionToken
	mtime      time.Time
	size       int64
}

// readCache avoids re-parsing collection files that have not changed.
// Entries are validated against mtime+size on every hit and dropped by
// InvalidateCache and by the fsnotify watcher.
type readCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	hits   uint64
	misses uint64
}

func newReadCache() *readCache {
	return &readCache{entries: make(map[string]*cacheEntry)}
}

func (rc *readCache) get(container string, mtime time.Time, size int64) (*cacheEntry, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	e, ok := rc.entries[container]
	if !ok || !e.mtime.Equal(mtime) || e.size != size {
		rc.misses++
		return nil, false
	}
	rc.hits++
	return e, true
}

func (rc *readCache) set(container string, e *cacheEntry) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[container] = e
}

func (rc *readCache) drop(container string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.entries, container)
}

func (rc *readCache) dropAll() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = make(map[string]*cacheEntry)
}

func (rc *readCache) stats() (hits, misses uint64, size int) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.hits, rc.misses, len(rc.entries)
}
