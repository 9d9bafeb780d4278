package renamer

import (
	"fmt"
	"os"
	"path/filepath"
)

const tmpPattern = ".*.pyimports.tmp"

// WriteFileAtomic replaces the file at path with data. The content is written
// to a temporary file in the same directory, synced, given the original mode
// and renamed over the target. Symlinks are resolved first so the link itself
// survives.
func WriteFileAtomic(path string, data []byte) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("write %s: resolve: %w", path, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("write %s: stat: %w", path, err)
	}

	fd, err := os.CreateTemp(filepath.Dir(target), tmpPattern)
	if err != nil {
		return fmt.Errorf("write %s: create temp: %w", path, err)
	}

	tmpPath := fd.Name()

	fail := func(step string, cause error) error {
		fd.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write %s: %s: %w", path, step, cause)
	}

	_, writeErr := fd.Write(data)
	if writeErr != nil {
		return fail("write temp", writeErr)
	}

	syncErr := fd.Sync()
	if syncErr != nil {
		return fail("sync", syncErr)
	}

	chmodErr := fd.Chmod(info.Mode().Perm())
	if chmodErr != nil {
		return fail("chmod", chmodErr)
	}

	closeErr := fd.Close()
	if closeErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("write %s: close: %w", path, closeErr)
	}

	renameErr := os.Rename(tmpPath, target)
	if renameErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("write %s: rename: %w", path, renameErr)
	}

	return nil
}
