package gitfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// tempFilePrefix marks in-flight writes so the watcher can skip them.
const tempFilePrefix = "marl-tmp-"

// writeFileAtomic replaces the target file in one step: the data lands in a
// temp file next to it, is fsynced, and is renamed over the target. Readers
// see either the old content or the new, never a partial write.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("stage file for %s: %w", filename, err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	err = func() error {
		defer tmp.Close()
		if _, err := tmp.Write(data); err != nil {
			return err
		}
		return tmp.Sync()
	}()
	if err != nil {
		return fmt.Errorf("stage %s: %w", filename, err)
	}

	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf("chmod staged file: %w", err)
	}
	if err := os.Rename(name, filename); err != nil {
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}
