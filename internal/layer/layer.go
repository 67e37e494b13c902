package layer

import (
	"os"
	"path/filepath"

	"github.com/kurtosis-tech/stacktrace"

	"github.com/layerworks/strata/internal/config"
)

// BaseLayerName is the display name used for the base layer in warnings and
// summaries. The base layer is addressed by path, never looked up as a stack.
const BaseLayerName = "base"

// NamedItemDirnames are the role directories whose immediate children are
// items: a later layer's item fully replaces an earlier layer's same-named
// item, file and directory alike.
var NamedItemDirnames = []string{"agents", "skills", "hooks", "commands"}

// OpaqueDirnames are the role directories merged at the file level with
// replace-on-collision. The distinction from named-item roles is
// organizational only.
var OpaqueDirnames = []string{"patterns", "styles"}

// Layer is a single composition source: the base layer or one stack.
type Layer struct {
	Name    string // BaseLayerName for the base layer, otherwise the stack name
	Dirpath string
}

// Exists reports whether the layer directory exists.
func (l Layer) Exists() (bool, error) {
	info, err := os.Stat(l.Dirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, stacktrace.Propagate(err, "failed to stat layer directory '%s'", l.Dirpath)
	}
	if !info.IsDir() {
		return false, stacktrace.NewError("layer path '%s' is not a directory", l.Dirpath)
	}
	return true, nil
}

// Settings returns the layer's settings.json bytes. The boolean reports
// presence: an empty-but-present file is distinct from an absent one.
func (l Layer) Settings() ([]byte, bool, error) {
	return l.readOptionalFile(config.SettingsFilename)
}

// ClaudeMd returns the layer's CLAUDE.md bytes and presence.
func (l Layer) ClaudeMd() ([]byte, bool, error) {
	return l.readOptionalFile(config.ClaudeMdFilename)
}

// Dependencies returns the stack names declared in the layer's depends.txt.
// The boolean reports whether the file exists.
func (l Layer) Dependencies() ([]string, bool, error) {
	data, found, err := l.readOptionalFile(config.DependsFilename)
	if err != nil || !found {
		return nil, found, err
	}
	return ParseDepends(data), true, nil
}

// RoleDirpath returns the path of a role directory within the layer.
func (l Layer) RoleDirpath(roleDirname string) string {
	return filepath.Join(l.Dirpath, roleDirname)
}

// ItemNames returns the item names inside the given named-item role
// directory, in lexical order. A missing role directory yields no items.
func (l Layer) ItemNames(roleDirname string) ([]string, error) {
	roleDirpath := l.RoleDirpath(roleDirname)
	entries, err := os.ReadDir(roleDirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, stacktrace.Propagate(err, "failed to read role directory '%s'", roleDirpath)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// PassthroughFilenames returns the layer's top-level files that are not one
// of the composition documents (settings.json, CLAUDE.md, depends.txt), in
// lexical order. Top-level directories outside the role sets are not layer
// content and are never returned here.
func (l Layer) PassthroughFilenames() ([]string, error) {
	entries, err := os.ReadDir(l.Dirpath)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to read layer directory '%s'", l.Dirpath)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isReservedFilename(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l Layer) readOptionalFile(filename string) ([]byte, bool, error) {
	fp := filepath.Join(l.Dirpath, filename)
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, stacktrace.Propagate(err, "failed to read '%s'", fp)
	}
	return data, true, nil
}

func isReservedFilename(name string) bool {
	switch name {
	case config.SettingsFilename, config.ClaudeMdFilename, config.DependsFilename:
		return true
	}
	return false
}
