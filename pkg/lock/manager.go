// Package lock implements the lock and version manager guarding the write
// path. A container lock is a backend-persisted marker; at most one exists
// per container at any time. Acquisition fails fast with a lock-conflict
// error instead of queueing, so callers own the retry policy.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marldb/marl/pkg/core"
)

// Manager acquires and releases container locks and reads version tokens
// through a backend connector.
type Manager struct {
	conn   core.Connector
	logger *slog.Logger
}

// NewManager creates a manager over the given connector.
func NewManager(conn core.Connector, logger *slog.Logger) *Manager {
	return &Manager{conn: conn, logger: logger}
}

// Acquire creates the container lock and returns a release function.
// If the container is already locked it fails immediately with
// core.ErrLockConflict; it never blocks or retries.
func (m *Manager) Acquire(ctx context.Context, container string) (func(), error) {
	handle, err := m.conn.AcquireContainerLock(ctx, container)
	if err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Debug("lock acquired", "container", container, "handle", handle.Token)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Release must not be skipped on failure paths, so it runs on a
		// background context even when the operation's context is dead.
		if err := m.conn.ReleaseContainerLock(context.WithoutCancel(ctx), handle); err != nil && m.logger != nil {
			m.logger.Warn("lock release failed", "container", container, "error", err)
		}
	}, nil
}

// WithLock runs fn while holding the container lock, releasing it on every
// exit path including panics.
func (m *Manager) WithLock(ctx context.Context, container string, fn func(ctx context.Context) error) error {
	release, err := m.Acquire(ctx, container)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Token returns the container's current version token.
func (m *Manager) Token(ctx context.Context, container string) (core.VersionToken, error) {
	_, tok, err := m.conn.ReadCollection(ctx, container)
	if err != nil {
		return "", err
	}
	return tok, nil
}

// ValidateAndCommit re-reads the container's token and runs the mutation
// only if it still matches the expected one. The connector performs the
// same check atomically at commit time; this pre-check just avoids paying
// for a mutation that is already doomed.
func (m *Manager) ValidateAndCommit(ctx context.Context, container string, expected core.VersionToken, mutation func(ctx context.Context) error) error {
	current, err := m.Token(ctx, container)
	if err != nil {
		return err
	}
	if current != expected {
		return core.VersionConflict(container)
	}
	return mutation(ctx)
}

// Locked reports whether the container currently has a lock marker.
func (m *Manager) Locked(ctx context.Context, container string) (bool, error) {
	return m.conn.CheckLock(ctx, container)
}

// StaleLockBreaker is implemented by connectors that record lock
// acquisition times and can force-release abandoned locks.
type StaleLockBreaker interface {
	BreakLock(ctx context.Context, container string, olderThan time.Duration) (bool, error)
}

// BreakLock force-releases a lock older than the given age. This is the
// admin recovery path for locks orphaned by a crash between acquire and
// release; it is never called on the normal write path.
func (m *Manager) BreakLock(ctx context.Context, container string, olderThan time.Duration) (bool, error) {
	b, ok := m.conn.(StaleLockBreaker)
	if !ok {
		return false, fmt.Errorf("connector does not support breaking locks")
	}
	broken, err := b.BreakLock(ctx, container, olderThan)
	if err != nil {
		return false, err
	}
	if broken && m.logger != nil {
		m.logger.Warn("stale lock broken", "container", container, "older_than", olderThan)
	}
	return broken, nil
}
