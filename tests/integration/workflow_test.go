package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marldb/marl"
)

// stageBundle writes asset bundle files into the connector's staging
// directory, standing in for a remote download.
func stageBundle(t *testing.T, repoDir, bundle string, files map[string]string) {
	t.Helper()
	root := filepath.Join(repoDir, ".marl", "bundles", bundle)
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// TestWorkflowLifecycle runs install, update, and delete over the
// git-backed connector's asset capability end to end.
func TestWorkflowLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	client, err := marl.Open(ctx, tempDir, marl.WithPlain(true))
	require.NoError(t, err)
	defer client.Close()

	stageBundle(t, tempDir, "ci", map[string]string{
		"manifest.yaml": "name: ci\nversion: 1.0.0\n",
		"build.yml":     "name: build\non: push\n",
		"deploy.yml":    "name: deploy\non: release\n",
		"README.md":     "not a workflow\n",
	})

	// Install selects only workflow files and records a manifest.
	rep, err := client.Actions.InstallWorkflow(ctx, "ci")
	require.NoError(t, err)
	require.Nil(t, rep.Failed())

	installedBuild := filepath.Join(tempDir, "workflows", "ci", "build.yml")
	if _, err := os.Stat(installedBuild); err != nil {
		t.Fatalf("expected build.yml to be installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "workflows", "ci", "README.md")); !os.IsNotExist(err) {
		t.Error("README.md must not be selected for installation")
	}

	// Update with a changed bundle replaces files and cleans orphans.
	require.NoError(t, os.RemoveAll(filepath.Join(tempDir, ".marl", "bundles", "ci")))
	stageBundle(t, tempDir, "ci", map[string]string{
		"manifest.yaml": "name: ci\nversion: 1.1.0\n",
		"build.yml":     "name: build\non: [push, pull_request]\n",
		"lint.yml":      "name: lint\non: push\n",
	})

	rep, err = client.Actions.UpdateWorkflow(ctx, "ci")
	require.NoError(t, err)
	require.Nil(t, rep.Failed())

	data, err := os.ReadFile(installedBuild)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pull_request")
	if _, err := os.Stat(filepath.Join(tempDir, "workflows", "ci", "deploy.yml")); !os.IsNotExist(err) {
		t.Error("deploy.yml should have been cleaned as an orphan")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "workflows", "ci", "lint.yml")); err != nil {
		t.Errorf("lint.yml should have been installed: %v", err)
	}

	// Delete removes the installed files and the manifest.
	rep, err = client.Actions.DeleteWorkflow(ctx, "ci")
	require.NoError(t, err)
	require.Nil(t, rep.Failed())
	if _, err := os.Stat(installedBuild); !os.IsNotExist(err) {
		t.Error("expected installed workflow files to be removed")
	}
}
