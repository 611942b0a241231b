package gitfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/marldb/marl/pkg/core"
)

// lockRecord is the content of a lock file. The acquisition time makes
// orphaned locks recoverable by age.
type lockRecord struct {
	Handle     string    `json:"handle"`
	Container  string    `json:"container"`
	AcquiredAt time.Time `json:"acquired_at"`
	PID        int       `json:"pid"`
}

func (c *Connector) lockPath(container string) string {
	return filepath.Join(c.config.Path, c.config.SystemDir, "locks", container+".lock")
}

// AcquireContainerLock creates the lock file with O_EXCL, failing fast
// with a lock conflict if it already exists.
func (c *Connector) AcquireContainerLock(_ context.Context, container string) (core.LockHandle, error) {
	path := c.lockPath(container)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return core.LockHandle{}, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return core.LockHandle{}, core.LockConflict(container)
		}
		return core.LockHandle{}, fmt.Errorf("failed to create lock file: %w", err)
	}

	rec := lockRecord{
		Handle:     uuid.NewString(),
		Container:  container,
		AcquiredAt: time.Now().UTC(),
		PID:        os.Getpid(),
	}
	data, _ := json.Marshal(rec)
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return core.LockHandle{}, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return core.LockHandle{}, err
	}

	if c.config.Logger != nil {
		c.config.Logger.Debug("lock file created", "container", container, "handle", rec.Handle)
	}
	return core.LockHandle{Container: container, Token: rec.Handle}, nil
}

// ReleaseContainerLock removes the lock file if it still belongs to the
// handle. A missing file or a foreign handle is not an error: the lock is
// simply no longer ours to release.
func (c *Connector) ReleaseContainerLock(_ context.Context, handle core.LockHandle) error {
	path := c.lockPath(handle.Container)

	rec, err := c.readLock(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Handle != handle.Token {
		return nil
	}
	return os.Remove(path)
}

// CheckLock reports whether a lock file exists for the container.
func (c *Connector) CheckLock(_ context.Context, container string) (bool, error) {
	_, err := os.Stat(c.lockPath(container))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BreakLock force-removes a lock older than the given age. It implements
// the admin recovery path for locks orphaned by a crash mid-write.
func (c *Connector) BreakLock(_ context.Context, container string, olderThan time.Duration) (bool, error) {
	path := c.lockPath(container)

	rec, err := c.readLock(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	age := time.Since(rec.AcquiredAt)
	if age < olderThan {
		return false, fmt.Errorf("lock on %s is only %s old, refusing to break", container, age.Round(time.Second))
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if c.config.Logger != nil {
		c.config.Logger.Warn("broke stale lock", "container", container, "age", age.Round(time.Second), "pid", rec.PID)
	}
	return true, nil
}

func (c *Connector) readLock(path string) (lockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockRecord{}, err
	}
	var rec lockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt lock file still locks; it just carries no age.
		return lockRecord{}, nil
	}
	return rec, nil
}
