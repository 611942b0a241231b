package core

import "context"

// MetricKind selects a usage metric exposed by the backend for the
// read-only facades.
type MetricKind string

const (
	MetricRepoSize       MetricKind = "repo_size"
	MetricStorageBilling MetricKind = "storage_billing"
	MetricActionsBilling MetricKind = "actions_billing"
	MetricWorkflowRuns   MetricKind = "workflow_runs"
	MetricUserList       MetricKind = "user_list"
	MetricCurrentUser    MetricKind = "current_user"
)

// LockHandle identifies one acquired container lock. The Token is backend
// opaque; Container is kept so release does not need extra state.
type LockHandle struct {
	Container string
	Token     string
}

// Connector is the port every backend adapter implements. It performs the
// raw read/write/lock operations against the remote store; the object
// store composes these into safe entity operations.
//
// Mutations are keyed to the version token the caller last observed and
// must fail with ErrVersionConflict when the token is stale. Lock
// acquisition must fail fast with ErrLockConflict, never block.
type Connector interface {
	// ReadCollection fetches the current collection and its version token.
	ReadCollection(ctx context.Context, container string) (Collection, VersionToken, error)

	// WriteNewRecord appends a record, keyed to the expected token.
	WriteNewRecord(ctx context.Context, container string, rec Record, expected VersionToken) (VersionToken, error)

	// UpdateRecord merges a patch into the named record.
	UpdateRecord(ctx context.Context, container, name string, patch Record, expected VersionToken) (VersionToken, error)

	// DeleteRecord removes the named record.
	DeleteRecord(ctx context.Context, container, name string, expected VersionToken) (VersionToken, error)

	// AcquireContainerLock creates the container's lock marker.
	AcquireContainerLock(ctx context.Context, container string) (LockHandle, error)

	// ReleaseContainerLock removes the lock marker. Releasing an already
	// released lock is not an error.
	ReleaseContainerLock(ctx context.Context, handle LockHandle) error

	// CheckLock reports whether a lock marker exists for the container.
	CheckLock(ctx context.Context, container string) (bool, error)

	// ReadUsageMetric returns the raw payload for a usage metric.
	ReadUsageMetric(ctx context.Context, kind MetricKind) (any, error)

	// InvalidateCache is an advisory hint after a successful write.
	InvalidateCache(ctx context.Context, container string) error
}

// AssetBundle is a downloaded set of remote automation assets, keyed by
// path relative to the bundle root.
type AssetBundle struct {
	Name  string
	Files map[string][]byte
}

// AssetConnector is the optional capability set the workflow installer
// needs. Connectors that cannot serve assets simply don't implement it.
type AssetConnector interface {
	// FetchAssetBundle downloads a named asset bundle.
	FetchAssetBundle(ctx context.Context, name string) (AssetBundle, error)

	// WriteRepoFile writes a file at the given repo-relative path.
	WriteRepoFile(ctx context.Context, path string, data []byte) error

	// ReadRepoFile reads a repo file. Missing files fail with ErrNotFound.
	ReadRepoFile(ctx context.Context, path string) ([]byte, error)

	// DeleteRepoFile removes a repo file. Missing files are not an error.
	DeleteRepoFile(ctx context.Context, path string) error

	// ListRepoFiles lists repo-relative paths under a directory.
	ListRepoFiles(ctx context.Context, dir string) ([]string, error)
}
