// Package gitfs implements the backend connector over a local git clone.
// Each container is one serialized collection file in the repo root; the
// version token is a content hash of that file, the lock is an O_EXCL lock
// file under the system directory, and every committed mutation becomes a
// git commit.
package gitfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/git"
)

// Connector implements core.Connector and core.AssetConnector against a
// working clone. One instance may be shared across entity clients.
type Connector struct {
	config Config
	git    *git.Client
	cache  *readCache
	watch  *watcher
}

// New creates a connector for the configured clone. Call Initialize before
// first use.
func New(config Config) *Connector {
	cfg := config.withDefaults()
	return &Connector{
		config: cfg,
		git:    git.NewClient(cfg.Path, cfg.Logger),
		cache:  newReadCache(),
	}
}

// Initialize prepares the clone: directory, git repo, ignore rules, and
// optionally the cache-invalidation watcher.
func (c *Connector) Initialize(ctx context.Context) error {
	if c.config.MustExist {
		info, err := os.Stat(c.config.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("clone path does not exist: %s", c.config.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("clone path is not a directory: %s", c.config.Path)
		}
	} else {
		if err := os.MkdirAll(c.config.Path, 0755); err != nil {
			return fmt.Errorf("failed to create clone directory: %w", err)
		}
	}

	if !c.config.Plain {
		if !git.IsInstalled() {
			return fmt.Errorf("git is not installed")
		}
		if !c.git.IsRepo() {
			if !c.config.AutoInit {
				return fmt.Errorf("path is not a git repository: %s", c.config.Path)
			}
			if err := c.git.Init(); err != nil {
				return fmt.Errorf("failed to git init: %w", err)
			}
		}
		modified, err := c.ensureIgnore()
		if err != nil {
			return fmt.Errorf("failed to ensure .gitignore: %w", err)
		}
		if modified {
			// Commit the ignore rule so the tree starts clean.
			if err := c.git.Add(".gitignore"); err != nil {
				return fmt.Errorf("failed to stage .gitignore: %w", err)
			}
			if err := c.git.Commit(fmt.Sprintf("chore: ignore %s directory", c.config.SystemDir)); err != nil {
				return fmt.Errorf("failed to commit .gitignore: %w", err)
			}
		}
	}

	if c.config.Watch {
		w, err := newWatcher(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		c.watch = w
	}
	return nil
}

// Sync integrates remote changes and pushes local commits. It requires git
// mode and a configured 'origin' remote.
func (c *Connector) Sync(_ context.Context) error {
	if c.config.Plain {
		return core.Invalid("Sync requires a git-backed repository")
	}
	if !c.git.IsRepo() {
		return core.Invalid("path is not a git repository: %s", c.config.Path)
	}
	if !c.git.HasRemote() {
		return core.Invalid("remote 'origin' is not configured")
	}
	if err := c.git.Sync(); err != nil {
		return core.Backend(err, "Failed to sync with remote")
	}
	// A pull may have rewritten any collection file.
	c.cache.dropAll()
	return nil
}

// Close stops the watcher if one is running.
func (c *Connector) Close() error {
	if c.watch != nil {
		c.watch.stop()
		c.watch = nil
	}
	return nil
}

// collectionPath returns the file backing a container.
func (c *Connector) collectionPath(container string) string {
	return filepath.Join(c.config.Path, container+c.collectionExt())
}

// ReadCollection fetches and parses the container's file, serving from the
// mtime-validated cache when possible.
func (c *Connector) ReadCollection(_ context.Context, container string) (core.Collection, core.VersionToken, error) {
	path := c.collectionPath(container)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		empty, eerr := c.encodeCollection(nil)
		if eerr != nil {
			return nil, "", eerr
		}
		return core.Collection{}, c.tokenOf(empty), nil
	}
	if err != nil {
		return nil, "", err
	}

	if e, hit := c.cache.get(container, info.ModTime(), info.Size()); hit {
		return e.collection.Clone(), e.token, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	coll, err := c.decodeCollection(data)
	if err != nil {
		return nil, "", err
	}
	tok := c.tokenOf(data)

	c.cache.set(container, &cacheEntry{
		collection: coll.Clone(),
		token:      tok,
		mtime:      info.ModTime(),
		size:       info.Size(),
	})
	return coll, tok, nil
}

// WriteNewRecord appends a record, keyed to the expected token.
func (c *Connector) WriteNewRecord(ctx context.Context, container string, rec core.Record, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected,
		fmt.Sprintf("data(%s): create %s", containerScope(container), rec.Name()),
		func(coll core.Collection) (core.Collection, error) {
			return append(coll, rec.Clone()), nil
		})
}

// UpdateRecord merges a patch into the named record.
func (c *Connector) UpdateRecord(ctx context.Context, container, name string, patch core.Record, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected,
		fmt.Sprintf("data(%s): update %s", containerScope(container), name),
		func(coll core.Collection) (core.Collection, error) {
			idx := coll.IndexOf(name)
			if idx < 0 {
				return nil, core.NotFound("no record named %q in %s", name, container)
			}
			coll[idx] = coll[idx].Merge(patch)
			return coll, nil
		})
}

// DeleteRecord removes the named record.
func (c *Connector) DeleteRecord(ctx context.Context, container, name string, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected,
		fmt.Sprintf("data(%s): delete %s", containerScope(container), name),
		func(coll core.Collection) (core.Collection, error) {
			idx := coll.IndexOf(name)
			if idx < 0 {
				return nil, core.NotFound("no record named %q in %s", name, container)
			}
			return append(coll[:idx:idx], coll[idx+1:]...), nil
		})
}

// mutate is the shared commit path: re-read, verify the token, apply the
// structural change, write atomically, record the git commit.
func (c *Connector) mutate(ctx context.Context, container string, expected core.VersionToken, commitMsg string, apply func(core.Collection) (core.Collection, error)) (core.VersionToken, error) {
	coll, current, err := c.ReadCollection(ctx, container)
	if err != nil {
		return "", err
	}
	if current != expected {
		return "", core.VersionConflict(container)
	}

	next, err := apply(coll)
	if err != nil {
		return "", err
	}

	data, err := c.encodeCollection(next)
	if err != nil {
		return "", fmt.Errorf("failed to serialize %s: %w", container, err)
	}

	path := c.collectionPath(container)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", container, err)
	}
	c.cache.drop(container)

	if !c.config.Plain {
		rel := filepath.Base(path)
		if err := c.git.Add(rel); err != nil {
			return "", fmt.Errorf("failed to git add: %w", err)
		}
		if err := c.git.Commit(commitMsg); err != nil {
			return "", fmt.Errorf("failed to git commit: %w", err)
		}
	}

	if c.config.Logger != nil {
		c.config.Logger.Debug("collection committed", "container", container, "records", len(next))
	}
	return c.tokenOf(data), nil
}

// InvalidateCache drops the container's cache entry.
func (c *Connector) InvalidateCache(_ context.Context, container string) error {
	c.cache.drop(container)
	return nil
}

// ensureIgnore appends the system directory to .gitignore once. It reports
// whether the file was modified.
func (c *Connector) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(c.config.Path, ".gitignore")
	ignoreEntry := c.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// containerScope lowercases a container name for commit scopes.
func containerScope(container string) string {
	return strings.ToLower(container)
}

var _ core.Connector = (*Connector)(nil)
