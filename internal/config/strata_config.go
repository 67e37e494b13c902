package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kurtosis-tech/stacktrace"
)

// DefaultWatchDebounce is the delay applied to filesystem event bursts in
// watch mode before recomposing.
const DefaultWatchDebounce = 500 * time.Millisecond

// StrataConfig represents the contents of config.yml. All fields are
// optional; the zero value means "use the default layout under the strata
// home directory".
type StrataConfig struct {
	BaseDirpath     string `yaml:"baseDirpath,omitempty"`     // Override for the base layer directory
	StacksDirpath   string `yaml:"stacksDirpath,omitempty"`   // Override for the stacks directory
	DefaultProfile  string `yaml:"defaultProfile,omitempty"`  // Profile used when no stacks are given
	WatchDebounceMs int    `yaml:"watchDebounceMs,omitempty"` // Watch-mode debounce in milliseconds
}

// GetWatchDebounce returns the watch-mode debounce duration, using the
// default if not set.
func (c *StrataConfig) GetWatchDebounce() time.Duration {
	if c.WatchDebounceMs <= 0 {
		return DefaultWatchDebounce
	}
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// ResolveBaseDirpath returns the effective base layer directory, honoring a
// config.yml override.
func (c *StrataConfig) ResolveBaseDirpath(strataDirpath string) string {
	if c.BaseDirpath != "" {
		return c.BaseDirpath
	}
	return GetBaseDirpath(strataDirpath)
}

// ResolveStacksDirpath returns the effective stacks directory, honoring a
// config.yml override.
func (c *StrataConfig) ResolveStacksDirpath(strataDirpath string) string {
	if c.StacksDirpath != "" {
		return c.StacksDirpath
	}
	return GetStacksDirpath(strataDirpath)
}

// GetConfigFilepath returns the path to config.yml inside the strata home.
func GetConfigFilepath(strataDirpath string) string {
	return filepath.Join(strataDirpath, ConfigFilename)
}

// ReadStrataConfig reads and parses config.yml. Returns an empty config if
// the file does not exist. Path overrides must be absolute so that commands
// behave identically regardless of the directory they run from.
func ReadStrataConfig(strataDirpath string) (*StrataConfig, error) {
	configFilepath := GetConfigFilepath(strataDirpath)

	data, err := os.ReadFile(configFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &StrataConfig{}, nil
		}
		return nil, stacktrace.Propagate(err, "failed to read config file '%s'", configFilepath)
	}

	var cfg StrataConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, stacktrace.Propagate(err, "failed to parse config file '%s'", configFilepath)
	}

	if cfg.BaseDirpath != "" && !filepath.IsAbs(cfg.BaseDirpath) {
		return nil, stacktrace.NewError(
			"baseDirpath '%s' in %s must be an absolute path", cfg.BaseDirpath, configFilepath)
	}
	if cfg.StacksDirpath != "" && !filepath.IsAbs(cfg.StacksDirpath) {
		return nil, stacktrace.NewError(
			"stacksDirpath '%s' in %s must be an absolute path", cfg.StacksDirpath, configFilepath)
	}
	if cfg.WatchDebounceMs < 0 {
		return nil, stacktrace.NewError(
			"watchDebounceMs in %s cannot be negative", configFilepath)
	}

	return &cfg, nil
}

// EnsureConfigFile creates config.yml with a minimal empty configuration if
// it does not already exist.
func EnsureConfigFile(strataDirpath string) error {
	configFilepath := GetConfigFilepath(strataDirpath)

	if _, err := os.Stat(configFilepath); err == nil {
		return nil
	}

	if err := os.WriteFile(configFilepath, []byte("{}\n"), 0644); err != nil {
		return stacktrace.Propagate(err, "failed to create config file '%s'", configFilepath)
	}

	return nil
}
