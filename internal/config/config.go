package config

import (
	"os"
	"path/filepath"

	"github.com/kurtosis-tech/stacktrace"
)

const (
	StrataDirpathEnvVar  = "STRATA_DIRPATH"
	DefaultStrataDirname = ".strata"

	BaseDirname      = "base"
	StacksDirname    = "stacks"
	ConfigFilename   = "config.yml"
	RegistryFilename = "stacks.yml"
	ProfilesFilename = "profiles.yml"
	DatabaseFilename = "strata.db"

	// Names inside a layer directory and inside the composed output.
	SettingsFilename      = "settings.json"
	SettingsLocalFilename = "settings.local.json"
	ClaudeMdFilename      = "CLAUDE.md"
	DependsFilename       = "depends.txt"
	ContextDirname        = "context"
	FeaturesDirname       = "features"
	HooksDirname          = "hooks"

	// Names inside an install target.
	ClaudeDirname     = ".claude"
	LockFilename      = "strata.lock"
	GitkeepFilename   = ".gitkeep"
	GitignoreFilename = ".gitignore"
)

// GetStrataDirpath returns the strata home directory path, reading from the
// STRATA_DIRPATH environment variable or defaulting to ~/.strata.
func GetStrataDirpath() (string, error) {
	if envVal := os.Getenv(StrataDirpathEnvVar); envVal != "" {
		return envVal, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to determine home directory")
	}
	return filepath.Join(homeDir, DefaultStrataDirname), nil
}

// EnsureDirStructure creates the required strata directory structure if it
// doesn't already exist.
func EnsureDirStructure(strataDirpath string) error {
	dirs := []string{
		filepath.Join(strataDirpath, BaseDirname),
		filepath.Join(strataDirpath, StacksDirname),
	}
	for _, dirpath := range dirs {
		if err := os.MkdirAll(dirpath, 0755); err != nil {
			return stacktrace.Propagate(err, "failed to create directory '%s'", dirpath)
		}
	}

	if err := EnsureConfigFile(strataDirpath); err != nil {
		return stacktrace.Propagate(err, "failed to seed config file")
	}

	return nil
}

// GetBaseDirpath returns the path to the base layer directory.
func GetBaseDirpath(strataDirpath string) string {
	return filepath.Join(strataDirpath, BaseDirname)
}

// GetStacksDirpath returns the path to the stacks directory.
func GetStacksDirpath(strataDirpath string) string {
	return filepath.Join(strataDirpath, StacksDirname)
}

// GetRegistryFilepath returns the path to the optional stack registry file.
func GetRegistryFilepath(strataDirpath string) string {
	return filepath.Join(strataDirpath, RegistryFilename)
}

// GetProfilesFilepath returns the path to the optional profiles file.
func GetProfilesFilepath(strataDirpath string) string {
	return filepath.Join(strataDirpath, ProfilesFilename)
}

// GetDatabaseFilepath returns the path to the run-history database.
func GetDatabaseFilepath(strataDirpath string) string {
	return filepath.Join(strataDirpath, DatabaseFilename)
}
