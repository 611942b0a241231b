package entities

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/marldb/marl/pkg/core"
)

// WorkflowDir is the repo directory automation workflows are installed to.
const WorkflowDir = "workflows"

// workflowGlob selects workflow definitions inside an asset bundle.
const workflowGlob = "**/*.{yml,yaml}"

// manifestFile is the per-workflow version manifest written on install.
const manifestFile = "manifest.yaml"

// Manifest describes an installed workflow bundle.
type Manifest struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Files   []string `yaml:"files"`
}

// StepResult reports the outcome of one installer step.
type StepResult struct {
	Name string
	Err  error
}

// Report is the ordered per-step outcome of a workflow operation.
// Steps completed before a failure stay applied; the failing step is the
// last entry with a non-nil Err.
type Report struct {
	Steps []StepResult
}

func (r *Report) step(name string, err error) error {
	r.Steps = append(r.Steps, StepResult{Name: name, Err: err})
	return err
}

// Failed returns the failing step, or nil if every step succeeded.
func (r *Report) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Err != nil {
			return &r.Steps[i]
		}
	}
	return nil
}

// Actions combines the read-only usage facade with the workflow installer.
// The installer operations are sequential and non-transactional: they sit
// on top of the connector's asset capability, outside the lock/version
// write path.
type Actions struct {
	conn   core.Connector
	assets core.AssetConnector
	logger *slog.Logger
}

// NewActions returns the Actions client. The workflow operations require
// a connector that also implements core.AssetConnector; the usage reads
// work with any connector.
func NewActions(conn core.Connector, logger *slog.Logger) *Actions {
	a := &Actions{conn: conn, logger: logger}
	if ac, ok := conn.(core.AssetConnector); ok {
		a.assets = ac
	}
	return a
}

// GetAll returns the raw workflow-runs payload.
func (a *Actions) GetAll(ctx context.Context) (any, error) {
	return a.conn.ReadUsageMetric(ctx, core.MetricWorkflowRuns)
}

// GetActionsBilling returns the raw actions billing payload.
func (a *Actions) GetActionsBilling(ctx context.Context) (any, error) {
	return a.conn.ReadUsageMetric(ctx, core.MetricActionsBilling)
}

// InstallWorkflow downloads the named asset bundle and writes its workflow
// files into the repo, recording a version manifest. Steps: fetch, select,
// write, record. A failing step aborts the sequence but leaves completed
// steps intact; the report says which step failed.
func (a *Actions) InstallWorkflow(ctx context.Context, bundleName string) (Report, error) {
	var rep Report
	if a.assets == nil {
		return rep, core.Invalid("connector does not support workflow assets")
	}

	bundle, err := a.assets.FetchAssetBundle(ctx, bundleName)
	if rep.step("fetch", err) != nil {
		return rep, err
	}

	manifest, files, err := selectWorkflowFiles(bundle)
	if rep.step("select", err) != nil {
		return rep, err
	}

	if err := a.writeFiles(ctx, bundleName, files, &manifest); rep.step("write", err) != nil {
		return rep, err
	}

	err = a.writeManifest(ctx, bundleName, manifest)
	if rep.step("record", err) != nil {
		return rep, err
	}

	if a.logger != nil {
		a.logger.Info("workflow installed", "bundle", bundleName, "version", manifest.Version, "files", len(manifest.Files))
	}
	return rep, nil
}

// UpdateWorkflow fetches the bundle, compares its version manifest against
// the installed one, and rewrites the files only when the version differs.
// Files that disappeared from the bundle are cleaned up. Steps: fetch,
// compare, write, clean, record.
func (a *Actions) UpdateWorkflow(ctx context.Context, bundleName string) (Report, error) {
	var rep Report
	if a.assets == nil {
		return rep, core.Invalid("connector does not support workflow assets")
	}

	bundle, err := a.assets.FetchAssetBundle(ctx, bundleName)
	if rep.step("fetch", err) != nil {
		return rep, err
	}

	incoming, files, err := selectWorkflowFiles(bundle)
	if err != nil {
		rep.step("compare", err)
		return rep, err
	}

	installed, err := a.readManifest(ctx, bundleName)
	if err != nil {
		rep.step("compare", err)
		return rep, err
	}
	if installed.Version == incoming.Version {
		rep.step("compare", nil)
		if a.logger != nil {
			a.logger.Debug("workflow already current", "bundle", bundleName, "version", installed.Version)
		}
		return rep, nil
	}
	rep.step("compare", nil)

	if err := a.writeFiles(ctx, bundleName, files, &incoming); rep.step("write", err) != nil {
		return rep, err
	}

	err = a.cleanOrphans(ctx, installed, incoming)
	if rep.step("clean", err) != nil {
		return rep, err
	}

	err = a.writeManifest(ctx, bundleName, incoming)
	if rep.step("record", err) != nil {
		return rep, err
	}

	if a.logger != nil {
		a.logger.Info("workflow updated", "bundle", bundleName, "from", installed.Version, "to", incoming.Version)
	}
	return rep, nil
}

// DeleteWorkflow removes the installed files and the manifest. Steps:
// manifest, delete, record.
func (a *Actions) DeleteWorkflow(ctx context.Context, bundleName string) (Report, error) {
	var rep Report
	if a.assets == nil {
		return rep, core.Invalid("connector does not support workflow assets")
	}

	installed, err := a.readManifest(ctx, bundleName)
	if rep.step("manifest", err) != nil {
		return rep, err
	}

	var firstErr error
	for _, f := range installed.Files {
		if err := a.assets.DeleteRepoFile(ctx, f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rep.step("delete", firstErr) != nil {
		return rep, firstErr
	}

	err = a.assets.DeleteRepoFile(ctx, manifestPath(bundleName))
	if rep.step("record", err) != nil {
		return rep, err
	}

	if a.logger != nil {
		a.logger.Info("workflow deleted", "bundle", bundleName, "files", len(installed.Files))
	}
	return rep, nil
}

// selectWorkflowFiles picks the workflow definitions out of a bundle and
// parses the bundle manifest.
func selectWorkflowFiles(bundle core.AssetBundle) (Manifest, map[string][]byte, error) {
	raw, ok := bundle.Files[manifestFile]
	if !ok {
		return Manifest{}, nil, core.Invalid("bundle %s has no %s", bundle.Name, manifestFile)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, nil, fmt.Errorf("failed to parse bundle manifest: %w", err)
	}
	if m.Version == "" {
		return Manifest{}, nil, core.Invalid("bundle %s manifest has no version", bundle.Name)
	}

	files := make(map[string][]byte)
	for name, data := range bundle.Files {
		match, err := doublestar.Match(workflowGlob, name)
		if err != nil {
			return Manifest{}, nil, err
		}
		if match && name != manifestFile {
			files[name] = data
		}
	}
	if len(files) == 0 {
		return Manifest{}, nil, core.Invalid("bundle %s contains no workflow files", bundle.Name)
	}
	return m, files, nil
}

func (a *Actions) writeFiles(ctx context.Context, bundleName string, files map[string][]byte, m *Manifest) error {
	// Deterministic order keeps partial failures reproducible.
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	m.Files = m.Files[:0]
	for _, name := range names {
		target := path.Join(WorkflowDir, bundleName, name)
		if err := a.assets.WriteRepoFile(ctx, target, files[name]); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		m.Files = append(m.Files, target)
	}
	return nil
}

func (a *Actions) cleanOrphans(ctx context.Context, installed, incoming Manifest) error {
	keep := make(map[string]bool, len(incoming.Files))
	for _, f := range incoming.Files {
		keep[f] = true
	}
	for _, f := range installed.Files {
		if keep[f] {
			continue
		}
		if err := a.assets.DeleteRepoFile(ctx, f); err != nil {
			return fmt.Errorf("failed to clean up %s: %w", f, err)
		}
	}
	return nil
}

func (a *Actions) readManifest(ctx context.Context, bundleName string) (Manifest, error) {
	raw, err := a.assets.ReadRepoFile(ctx, manifestPath(bundleName))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("installed manifest for %s is corrupt: %w", bundleName, err)
	}
	return m, nil
}

func (a *Actions) writeManifest(ctx context.Context, bundleName string, m Manifest) error {
	m.Name = bundleName
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return a.assets.WriteRepoFile(ctx, manifestPath(bundleName), data)
}

func manifestPath(bundleName string) string {
	return path.Join(WorkflowDir, bundleName, manifestFile)
}
