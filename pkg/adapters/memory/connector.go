// Package memory provides an in-process Connector used by tests, examples,
// and as a reference implementation of the backend contract.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/marldb/marl/pkg/core"
)

// Connector keeps collections in memory behind a mutex. Version tokens are
// regenerated on every commit; locks are plain map entries.
type Connector struct {
	mu          sync.Mutex
	collections map[string]core.Collection
	tokens      map[string]core.VersionToken
	locks       map[string]core.LockHandle
	metrics     map[core.MetricKind]any
	bundles     map[string]core.AssetBundle
	repoFiles   map[string][]byte

	// FailNext, when set, makes the next collection read fail with the
	// given error. Used to exercise backend-failure paths in tests.
	FailNext error

	// Invalidations counts InvalidateCache calls per container.
	Invalidations map[string]int
}

// New creates an empty connector.
func New() *Connector {
	return &Connector{
		collections:   make(map[string]core.Collection),
		tokens:        make(map[string]core.VersionToken),
		locks:         make(map[string]core.LockHandle),
		metrics:       make(map[core.MetricKind]any),
		bundles:       make(map[string]core.AssetBundle),
		repoFiles:     make(map[string][]byte),
		Invalidations: make(map[string]int),
	}
}

// Seed replaces a container's collection and issues a fresh token.
func (c *Connector) Seed(container string, coll core.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections[container] = coll.Clone()
	c.tokens[container] = freshToken()
}

// SetMetric sets the payload returned for a usage metric kind.
func (c *Connector) SetMetric(kind core.MetricKind, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics[kind] = payload
}

// SeedBundle registers an asset bundle for the workflow installer.
func (c *Connector) SeedBundle(b core.AssetBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundles[b.Name] = b
}

// RepoFile returns a previously written repo file.
func (c *Connector) RepoFile(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.repoFiles[path]
	return data, ok
}

func (c *Connector) ReadCollection(_ context.Context, container string) (core.Collection, core.VersionToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext != nil {
		err := c.FailNext
		c.FailNext = nil
		return nil, "", err
	}
	tok, ok := c.tokens[container]
	if !ok {
		tok = freshToken()
		c.tokens[container] = tok
	}
	return c.collections[container].Clone(), tok, nil
}

func (c *Connector) WriteNewRecord(_ context.Context, container string, rec core.Record, expected core.VersionToken) (core.VersionToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(container, expected); err != nil {
		return "", err
	}
	c.collections[container] = append(c.collections[container], rec.Clone())
	return c.bump(container), nil
}

func (c *Connector) UpdateRecord(_ context.Context, container, name string, patch core.Record, expected core.VersionToken) (core.VersionToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(container, expected); err != nil {
		return "", err
	}
	coll := c.collections[container]
	idx := coll.IndexOf(name)
	if idx < 0 {
		return "", core.NotFound("no record named %q in %s", name, container)
	}
	coll[idx] = coll[idx].Merge(patch)
	return c.bump(container), nil
}

func (c *Connector) DeleteRecord(_ context.Context, container, name string, expected core.VersionToken) (core.VersionToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(container, expected); err != nil {
		return "", err
	}
	coll := c.collections[container]
	idx := coll.IndexOf(name)
	if idx < 0 {
		return "", core.NotFound("no record named %q in %s", name, container)
	}
	c.collections[container] = append(coll[:idx:idx], coll[idx+1:]...)
	return c.bump(container), nil
}

func (c *Connector) AcquireContainerLock(_ context.Context, container string) (core.LockHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[container]; held {
		return core.LockHandle{}, core.LockConflict(container)
	}
	handle := core.LockHandle{Container: container, Token: uuid.NewString()}
	c.locks[container] = handle
	return handle, nil
}

func (c *Connector) ReleaseContainerLock(_ context.Context, handle core.LockHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	held, ok := c.locks[handle.Container]
	if !ok || held.Token != handle.Token {
		return nil // already released, or someone else's lock
	}
	delete(c.locks, handle.Container)
	return nil
}

func (c *Connector) CheckLock(_ context.Context, container string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.locks[container]
	return held, nil
}

func (c *Connector) ReadUsageMetric(_ context.Context, kind core.MetricKind) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.metrics[kind]
	if !ok {
		return nil, core.NotFound("no metric of kind %s", kind)
	}
	return payload, nil
}

func (c *Connector) InvalidateCache(_ context.Context, container string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations[container]++
	return nil
}

// FetchAssetBundle implements core.AssetConnector.
func (c *Connector) FetchAssetBundle(_ context.Context, name string) (core.AssetBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bundles[name]
	if !ok {
		return core.AssetBundle{}, core.NotFound("no asset bundle named %q", name)
	}
	return b, nil
}

func (c *Connector) WriteRepoFile(_ context.Context, path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repoFiles[path] = append([]byte(nil), data...)
	return nil
}

func (c *Connector) ReadRepoFile(_ context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.repoFiles[path]
	if !ok {
		return nil, core.NotFound("no repo file at %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (c *Connector) DeleteRepoFile(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.repoFiles, path)
	return nil
}

func (c *Connector) ListRepoFiles(_ context.Context, dir string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for path := range c.repoFiles {
		if dir == "" || hasPrefixDir(path, dir) {
			out = append(out, path)
		}
	}
	return out, nil
}

// check validates an expected token under the connector mutex.
func (c *Connector) check(container string, expected core.VersionToken) error {
	tok, ok := c.tokens[container]
	if !ok {
		tok = freshToken()
		c.tokens[container] = tok
	}
	if expected != tok {
		return core.VersionConflict(container)
	}
	return nil
}

func (c *Connector) bump(container string) core.VersionToken {
	tok := freshToken()
	c.tokens[container] = tok
	return tok
}

func freshToken() core.VersionToken {
	return core.VersionToken(uuid.NewString())
}

func hasPrefixDir(path, dir string) bool {
	if len(path) <= len(dir) {
		return false
	}
	return path[:len(dir)] == dir && path[len(dir)] == '/'
}

var _ core.Connector = (*Connector)(nil)
var _ core.AssetConnector = (*Connector)(nil)
