package gitfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marldb/marl/pkg/core"
)

// bundleDir resolves the staging directory for downloaded asset bundles.
func (c *Connector) bundleDir() string {
	if c.config.BundleDir != "" {
		return c.config.BundleDir
	}
	return filepath.Join(c.config.Path, c.config.SystemDir, "bundles")
}

// FetchAssetBundle loads a staged bundle from the bundle directory.
func (c *Connector) FetchAssetBundle(_ context.Context, name string) (core.AssetBundle, error) {
	root := filepath.Join(c.bundleDir(), name)
	info, err := os.Stat(root)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return core.AssetBundle{}, core.NotFound("no asset bundle named %q", name)
	}
	if err != nil {
		return core.AssetBundle{}, err
	}

	bundle := core.AssetBundle{Name: name, Files: make(map[string][]byte)}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		bundle.Files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return core.AssetBundle{}, fmt.Errorf("failed to read bundle %s: %w", name, err)
	}
	return bundle, nil
}

// WriteRepoFile writes a repo-relative file atomically and commits it.
func (c *Connector) WriteRepoFile(_ context.Context, path string, data []byte) error {
	rel, err := c.safeRel(path)
	if err != nil {
		return err
	}
	full := filepath.Join(c.config.Path, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return err
	}

	if c.config.Plain {
		return nil
	}
	if err := c.git.Add(rel); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	return c.git.Commit(fmt.Sprintf("chore(workflows): write %s", path))
}

// ReadRepoFile reads a repo-relative file.
func (c *Connector) ReadRepoFile(_ context.Context, path string) ([]byte, error) {
	rel, err := c.safeRel(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(c.config.Path, rel))
	if os.IsNotExist(err) {
		return nil, core.NotFound("no repo file at %s", path)
	}
	return data, err
}

// DeleteRepoFile removes a repo-relative file; missing files are fine.
func (c *Connector) DeleteRepoFile(_ context.Context, path string) error {
	rel, err := c.safeRel(path)
	if err != nil {
		return err
	}
	full := filepath.Join(c.config.Path, rel)

	if _, err := os.Stat(full); os.IsNotExist(err) {
		return nil
	}

	if c.config.Plain {
		return os.Remove(full)
	}
	if err := c.git.Rm(rel); err != nil {
		return err
	}
	return c.git.Commit(fmt.Sprintf("chore(workflows): remove %s", path))
}

// ListRepoFiles lists repo-relative paths under a directory.
func (c *Connector) ListRepoFiles(_ context.Context, dir string) ([]string, error) {
	rel, err := c.safeRel(dir)
	if err != nil {
		return nil, err
	}
	root := filepath.Join(c.config.Path, rel)

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if os.IsNotExist(err) {
			return filepath.SkipAll
		}
		if err != nil || d.IsDir() {
			return err
		}
		r, err := filepath.Rel(c.config.Path, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(r))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// safeRel normalizes a repo-relative path and rejects traversal outside
// the clone.
func (c *Connector) safeRel(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." {
		return ".", nil
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", core.Invalid("path %q escapes the repository", path)
	}
	return clean, nil
}

var _ core.AssetConnector = (*Connector)(nil)
