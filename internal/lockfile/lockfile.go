package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kurtosis-tech/stacktrace"

	"github.com/layerworks/strata/internal/config"
)

// Lockfile records what an install placed under .claude: the strata version,
// the stacks (or profile) requested, and a checksum per installed file so
// later runs can detect local edits.
type Lockfile struct {
	Version     string            `yaml:"version"`
	InstalledAt time.Time         `yaml:"installedAt"`
	Profile     string            `yaml:"profile,omitempty"`
	Stacks      []string          `yaml:"stacks"`
	Files       map[string]string `yaml:"files"` // slash-separated relpath -> sha256 hex
}

// Diff describes how the files on disk have drifted from a lockfile.
type Diff struct {
	Modified []string // checksum differs from the lock
	Deleted  []string // in the lock but gone from disk
	Added    []string // on disk but not in the lock
}

// IsClean reports whether nothing drifted.
func (d Diff) IsClean() bool {
	return len(d.Modified) == 0 && len(d.Deleted) == 0 && len(d.Added) == 0
}

// GetLockFilepath returns the path of the lockfile inside an installed
// .claude directory.
func GetLockFilepath(claudeDirpath string) string {
	return filepath.Join(claudeDirpath, config.LockFilename)
}

// Read loads the lockfile from an installed .claude directory. The boolean
// reports whether a lockfile exists.
func Read(claudeDirpath string) (*Lockfile, bool, error) {
	lockFilepath := GetLockFilepath(claudeDirpath)

	data, err := os.ReadFile(lockFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, stacktrace.Propagate(err, "failed to read lockfile '%s'", lockFilepath)
	}

	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, false, stacktrace.Propagate(err, "failed to parse lockfile '%s'", lockFilepath)
	}
	return &lock, true, nil
}

// Write marshals and writes the lockfile into the .claude directory.
func Write(claudeDirpath string, lock *Lockfile) error {
	lockFilepath := GetLockFilepath(claudeDirpath)

	data, err := yaml.Marshal(lock)
	if err != nil {
		return stacktrace.Propagate(err, "failed to marshal lockfile")
	}
	if err := os.WriteFile(lockFilepath, data, 0644); err != nil {
		return stacktrace.Propagate(err, "failed to write lockfile '%s'", lockFilepath)
	}
	return nil
}

// ComputeChecksums walks an installed .claude directory and returns a
// sha256 hex digest per regular file, keyed by slash-separated relative
// path. The lockfile itself, settings.local.json, and everything under
// context/ (user-owned) are excluded.
func ComputeChecksums(claudeDirpath string) (map[string]string, error) {
	checksums := make(map[string]string)

	err := filepath.Walk(claudeDirpath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(claudeDirpath, path)
		if err != nil {
			return stacktrace.Propagate(err, "failed to compute relative path")
		}

		if info.IsDir() {
			if relPath == config.ContextDirname {
				return filepath.SkipDir
			}
			return nil
		}
		if relPath == config.LockFilename || relPath == config.SettingsLocalFilename {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		sum, err := computeFileChecksum(path)
		if err != nil {
			return err
		}
		checksums[filepath.ToSlash(relPath)] = sum
		return nil
	})
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to checksum '%s'", claudeDirpath)
	}
	return checksums, nil
}

// DiffAgainst compares the lockfile's recorded checksums with the current
// ones from ComputeChecksums. All slices come back sorted.
func (l *Lockfile) DiffAgainst(currentChecksums map[string]string) Diff {
	var diff Diff
	for relPath, lockedSum := range l.Files {
		currentSum, exists := currentChecksums[relPath]
		switch {
		case !exists:
			diff.Deleted = append(diff.Deleted, relPath)
		case currentSum != lockedSum:
			diff.Modified = append(diff.Modified, relPath)
		}
	}
	for relPath := range currentChecksums {
		if _, exists := l.Files[relPath]; !exists {
			diff.Added = append(diff.Added, relPath)
		}
	}
	sort.Strings(diff.Modified)
	sort.Strings(diff.Deleted)
	sort.Strings(diff.Added)
	return diff
}

func computeFileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to read '%s' for checksumming", path)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
