package gitfs

import (
	"github.com/aretw0/introspection"
)

// State exposes connector internals for observability.
type State struct {
	Path        string `json:"path"`
	Plain       bool   `json:"plain"`
	Watching    bool   `json:"watching"`
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`
	CacheSize   int    `json:"cache_size"`
}

// State implements introspection.Introspectable.
func (c *Connector) State() any {
	hits, misses, size := c.cache.stats()
	return State{
		Path:        c.config.Path,
		Plain:       c.config.Plain,
		Watching:    c.watch != nil,
		CacheHits:   hits,
		CacheMisses: misses,
		CacheSize:   size,
	}
}

// ComponentType implements introspection.Component.
func (c *Connector) ComponentType() string {
	return "gitfs"
}

var _ introspection.Introspectable = (*Connector)(nil)
var _ introspection.Component = (*Connector)(nil)
