package compose

import (
	"os"
	"path/filepath"

	"github.com/kurtosis-tech/stacktrace"
)

// CopyDir recursively copies srcDirpath into dstDirpath, preserving relative
// structure, file modes, and symlinks. Contents are copied byte-for-byte; no
// expansion or templating of any kind. Existing files are overwritten;
// existing files absent from the source are left alone.
func CopyDir(srcDirpath string, dstDirpath string) error {
	return filepath.Walk(srcDirpath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDirpath, path)
		if err != nil {
			return stacktrace.Propagate(err, "failed to compute relative path")
		}

		dstPath := filepath.Join(dstDirpath, relPath)

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode().Perm())
		}

		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return stacktrace.Propagate(err, "failed to read symlink '%s'", path)
			}
			if err := os.Remove(dstPath); err != nil && !os.IsNotExist(err) {
				return stacktrace.Propagate(err, "failed to remove existing '%s'", dstPath)
			}
			return os.Symlink(linkTarget, dstPath)
		}

		return copyFile(path, dstPath, info.Mode().Perm())
	})
}

// copyFile copies a single regular file, overwriting any existing dstPath.
func copyFile(srcPath string, dstPath string, mode os.FileMode) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return stacktrace.Propagate(err, "failed to read '%s'", srcPath)
	}
	if err := os.WriteFile(dstPath, data, mode); err != nil {
		return stacktrace.Propagate(err, "failed to write '%s'", dstPath)
	}
	// WriteFile applies mode only on create; an overwritten file would keep
	// its old mode without this.
	if err := os.Chmod(dstPath, mode); err != nil {
		return stacktrace.Propagate(err, "failed to set mode on '%s'", dstPath)
	}
	return nil
}

// replaceItem removes whatever currently exists at dstItemPath (file or
// directory, recursively) and copies srcItemPath in its place. This is the
// item-level replacement used for named-item roles: no merging happens
// within an item, so stale nested files from earlier layers cannot survive.
func replaceItem(srcItemPath string, dstItemPath string) error {
	if err := os.RemoveAll(dstItemPath); err != nil {
		return stacktrace.Propagate(err, "failed to remove existing item '%s'", dstItemPath)
	}

	info, err := os.Lstat(srcItemPath)
	if err != nil {
		return stacktrace.Propagate(err, "failed to stat item '%s'", srcItemPath)
	}

	if info.IsDir() {
		return CopyDir(srcItemPath, dstItemPath)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		linkTarget, err := os.Readlink(srcItemPath)
		if err != nil {
			return stacktrace.Propagate(err, "failed to read symlink '%s'", srcItemPath)
		}
		return os.Symlink(linkTarget, dstItemPath)
	}

	return copyFile(srcItemPath, dstItemPath, info.Mode().Perm())
}
