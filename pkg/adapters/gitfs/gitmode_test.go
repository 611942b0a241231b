package gitfs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marldb/marl/pkg/adapters/gitfs"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/git"
)

// setupGitConnector initializes a connector with versioning enabled,
// skipping when no git binary is around.
func setupGitConnector(t *testing.T) (*gitfs.Connector, *git.Client, string) {
	t.Helper()
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}

	path := filepath.Join(t.TempDir(), "clone")
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	// Identity has to be in place before Initialize commits the ignore rule.
	client := git.NewClient(path, nil)
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		if _, err := client.Run(args...); err != nil {
			t.Fatalf("git setup failed: %v", err)
		}
	}

	conn := gitfs.New(gitfs.Config{Path: path, AutoInit: true})
	if err := conn.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, client, path
}

func TestGitMode(t *testing.T) {
	ctx := context.Background()

	t.Run("Initialize Creates Repo and Ignores System Dir", func(t *testing.T) {
		_, client, path := setupGitConnector(t)

		if !client.IsRepo() {
			t.Error("expected a git repository")
		}
		ignore, err := os.ReadFile(filepath.Join(path, ".gitignore"))
		if err != nil {
			t.Fatalf(".gitignore missing: %v", err)
		}
		if string(ignore) != ".marl/\n" {
			t.Errorf("unexpected .gitignore: %q", ignore)
		}
		if status, _ := client.Status(); status != "" {
			t.Errorf("expected clean tree after Initialize, got %q", status)
		}
		if got := client.CommitCount(); got != 1 {
			t.Errorf("expected the .gitignore commit, got %d commits", got)
		}
	})

	t.Run("Each Mutation Becomes a Commit", func(t *testing.T) {
		conn, client, _ := setupGitConnector(t)
		base := client.CommitCount()

		_, tok, _ := conn.ReadCollection(ctx, "Studies")
		tok, err := conn.WriteNewRecord(ctx, "Studies", core.Record{"name": "Study 1"}, tok)
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if _, err := conn.UpdateRecord(ctx, "Studies", "Study 1", core.Record{"status": "done"}, tok); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		if got := client.CommitCount() - base; got != 2 {
			t.Errorf("expected 2 data commits, got %d", got)
		}

		status, _ := client.Status()
		if status != "" {
			t.Errorf("expected clean tree after commits, got %q", status)
		}
	})

	t.Run("Sync Rejected in Plain Mode", func(t *testing.T) {
		conn, _ := setupConnector(t)
		if err := conn.Sync(ctx); !errors.Is(err, core.ErrInvalidParameter) {
			t.Errorf("expected invalid parameter in plain mode, got %v", err)
		}
	})

	t.Run("Sync Requires a Remote", func(t *testing.T) {
		conn, _, _ := setupGitConnector(t)
		if err := conn.Sync(ctx); !errors.Is(err, core.ErrInvalidParameter) {
			t.Errorf("expected invalid parameter without a remote, got %v", err)
		}
	})

	t.Run("Sync Pushes Data Commits", func(t *testing.T) {
		conn, client, _ := setupGitConnector(t)

		_, tok, _ := conn.ReadCollection(ctx, "Studies")
		if _, err := conn.WriteNewRecord(ctx, "Studies", core.Record{"name": "Study 1"}, tok); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		remote := filepath.Join(t.TempDir(), "origin.git")
		for _, args := range [][]string{
			{"init", "--bare", remote},
			{"remote", "add", "origin", remote},
			{"push", "-u", "origin", "HEAD"},
		} {
			if _, err := client.Run(args...); err != nil {
				t.Fatalf("remote setup failed: %v", err)
			}
		}

		_, tok, _ = conn.ReadCollection(ctx, "Studies")
		if _, err := conn.UpdateRecord(ctx, "Studies", "Study 1", core.Record{"status": "done"}, tok); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if err := conn.Sync(ctx); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		bare := git.NewClient(remote, nil)
		if client.CommitCount() != bare.CommitCount() {
			t.Errorf("remote is behind: local %d, remote %d", client.CommitCount(), bare.CommitCount())
		}
	})

	t.Run("Usage Metrics From Local State", func(t *testing.T) {
		conn, _, _ := setupGitConnector(t)

		_, tok, _ := conn.ReadCollection(ctx, "Studies")
		if _, err := conn.WriteNewRecord(ctx, "Studies", core.Record{"name": "Study 1"}, tok); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		me, err := conn.ReadUsageMetric(ctx, core.MetricCurrentUser)
		if err != nil {
			t.Fatalf("MetricCurrentUser failed: %v", err)
		}
		if m := me.(map[string]any); m["email"] != "test@example.com" {
			t.Errorf("unexpected current user: %v", me)
		}

		runs, err := conn.ReadUsageMetric(ctx, core.MetricWorkflowRuns)
		if err != nil || runs.(int) < 1 {
			t.Errorf("unexpected runs: %v (%v)", runs, err)
		}

		size, err := conn.ReadUsageMetric(ctx, core.MetricRepoSize)
		if err != nil || size.(int64) <= 0 {
			t.Errorf("unexpected repo size: %v (%v)", size, err)
		}
	})
}
