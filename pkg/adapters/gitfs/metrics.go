package gitfs

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/marldb/marl/pkg/core"
)

// Usage metrics are served from local repository state: size from a walk,
// identity from git config, history figures from the commit log.
func (c *Connector) ReadUsageMetric(_ context.Context, kind core.MetricKind) (any, error) {
	switch kind {
	case core.MetricRepoSize:
		return c.repoSize()

	case core.MetricStorageBilling:
		size, err := c.repoSize()
		if err != nil {
			return nil, err
		}
		return map[string]any{"bytes_used": size}, nil

	case core.MetricCurrentUser:
		if c.config.Plain {
			return nil, core.Invalid("current user is unavailable without git")
		}
		return map[string]any{
			"name":  c.git.ConfigGet("user.name"),
			"email": c.git.ConfigGet("user.email"),
		}, nil

	case core.MetricUserList:
		if c.config.Plain {
			return nil, core.Invalid("user list is unavailable without git")
		}
		return c.git.Authors(), nil

	case core.MetricWorkflowRuns, core.MetricActionsBilling:
		if c.config.Plain {
			return nil, core.Invalid("history metrics are unavailable without git")
		}
		count := c.git.CommitCount()
		if kind == core.MetricActionsBilling {
			return map[string]any{"total_commits": count}, nil
		}
		return count, nil

	default:
		return nil, core.Invalid("unknown metric kind %q", kind)
	}
}

// repoSize sums file sizes, skipping .git and the system directory.
func (c *Connector) repoSize() (int64, error) {
	var total int64
	err := filepath.WalkDir(c.config.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == c.config.SystemDir {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
