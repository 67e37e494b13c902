package compose

import (
	"os"
	"path/filepath"

	"github.com/kurtosis-tech/stacktrace"

	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/layer"
)

// Request describes one composition: the resolved layer sequence and the
// output directory to write into. The output directory is caller-owned and
// passed explicitly; Compose creates it if needed and writes only inside it.
type Request struct {
	Layers        []layer.Layer
	OutputDirpath string
}

// Result summarizes what a composition produced.
type Result struct {
	LayerNames       []string
	ItemCounts       map[string]int // named-item role -> item count in the output
	ClaudeMdWritten  bool
	SettingsWritten  bool
	SettingsDegraded bool
	Warnings         []string
}

// Compose applies the layers, in order, into the output directory: item-level
// replacement for named-item roles, file-level replacement for opaque roles,
// concatenation for CLAUDE.md, deep merge for settings.json, and overwriting
// copies for passthrough files. The context/ and context/features/ scaffolding
// directories are always created and left empty.
func Compose(req Request) (*Result, error) {
	if req.OutputDirpath == "" {
		return nil, stacktrace.NewError("output directory must be set")
	}
	if err := os.MkdirAll(req.OutputDirpath, 0755); err != nil {
		return nil, stacktrace.Propagate(err, "failed to create output directory '%s'", req.OutputDirpath)
	}

	result := &Result{ItemCounts: make(map[string]int)}

	var settingsContributions []SettingsContribution
	var docContributions []DocContribution

	for _, l := range req.Layers {
		result.LayerNames = append(result.LayerNames, l.Name)

		if err := applyNamedItemRoles(l, req.OutputDirpath); err != nil {
			return nil, stacktrace.Propagate(err, "failed to apply layer '%s'", l.Name)
		}
		if err := applyOpaqueRoles(l, req.OutputDirpath); err != nil {
			return nil, stacktrace.Propagate(err, "failed to apply layer '%s'", l.Name)
		}
		if err := applyPassthroughFiles(l, req.OutputDirpath); err != nil {
			return nil, stacktrace.Propagate(err, "failed to apply layer '%s'", l.Name)
		}

		settingsData, found, err := l.Settings()
		if err != nil {
			return nil, err
		}
		if found {
			settingsContributions = append(settingsContributions, SettingsContribution{
				LayerName: l.Name,
				Data:      settingsData,
			})
		}

		docData, found, err := l.ClaudeMd()
		if err != nil {
			return nil, err
		}
		if found {
			docContributions = append(docContributions, DocContribution{
				LayerName: l.Name,
				Content:   docData,
			})
		}
	}

	// Merged CLAUDE.md
	if merged := ConcatClaudeMd(docContributions); merged != nil {
		claudeMdFilepath := filepath.Join(req.OutputDirpath, config.ClaudeMdFilename)
		if err := os.WriteFile(claudeMdFilepath, merged, 0644); err != nil {
			return nil, stacktrace.Propagate(err, "failed to write '%s'", claudeMdFilepath)
		}
		result.ClaudeMdWritten = true
	}

	// Merged settings.json
	settingsResult, err := MergeSettingsDocs(settingsContributions)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to merge settings")
	}
	if settingsResult.Data != nil {
		settingsFilepath := filepath.Join(req.OutputDirpath, config.SettingsFilename)
		if err := os.WriteFile(settingsFilepath, settingsResult.Data, 0644); err != nil {
			return nil, stacktrace.Propagate(err, "failed to write '%s'", settingsFilepath)
		}
		result.SettingsWritten = true
		result.SettingsDegraded = settingsResult.Degraded
		if settingsResult.Warning != "" {
			result.Warnings = append(result.Warnings, settingsResult.Warning)
		}
	}

	// Context scaffolding, always present and empty
	featuresDirpath := filepath.Join(req.OutputDirpath, config.ContextDirname, config.FeaturesDirname)
	if err := os.MkdirAll(featuresDirpath, 0755); err != nil {
		return nil, stacktrace.Propagate(err, "failed to create context directories")
	}

	for _, roleDirname := range layer.NamedItemDirnames {
		count, err := countItems(filepath.Join(req.OutputDirpath, roleDirname))
		if err != nil {
			return nil, err
		}
		result.ItemCounts[roleDirname] = count
	}

	return result, nil
}

// applyNamedItemRoles replaces each of the layer's items into the output's
// role directories.
func applyNamedItemRoles(l layer.Layer, outputDirpath string) error {
	for _, roleDirname := range layer.NamedItemDirnames {
		itemNames, err := l.ItemNames(roleDirname)
		if err != nil {
			return err
		}
		if len(itemNames) == 0 {
			continue
		}

		outputRoleDirpath := filepath.Join(outputDirpath, roleDirname)
		if err := os.MkdirAll(outputRoleDirpath, 0755); err != nil {
			return stacktrace.Propagate(err, "failed to create role directory '%s'", outputRoleDirpath)
		}

		for _, itemName := range itemNames {
			srcItemPath := filepath.Join(l.RoleDirpath(roleDirname), itemName)
			dstItemPath := filepath.Join(outputRoleDirpath, itemName)
			if err := replaceItem(srcItemPath, dstItemPath); err != nil {
				return stacktrace.Propagate(err, "failed to place item '%s/%s'", roleDirname, itemName)
			}
		}
	}
	return nil
}

// applyOpaqueRoles copies the layer's opaque role directories onto the
// output, replacing colliding files.
func applyOpaqueRoles(l layer.Layer, outputDirpath string) error {
	for _, roleDirname := range layer.OpaqueDirnames {
		srcRoleDirpath := l.RoleDirpath(roleDirname)
		if _, err := os.Stat(srcRoleDirpath); os.IsNotExist(err) {
			continue
		}
		dstRoleDirpath := filepath.Join(outputDirpath, roleDirname)
		if err := CopyDir(srcRoleDirpath, dstRoleDirpath); err != nil {
			return stacktrace.Propagate(err, "failed to copy role directory '%s'", roleDirname)
		}
	}
	return nil
}

// applyPassthroughFiles copies the layer's unreserved top-level files into
// the output root, overwriting same-named files from earlier layers.
func applyPassthroughFiles(l layer.Layer, outputDirpath string) error {
	filenames, err := l.PassthroughFilenames()
	if err != nil {
		return err
	}
	for _, filename := range filenames {
		srcPath := filepath.Join(l.Dirpath, filename)
		info, err := os.Stat(srcPath)
		if err != nil {
			return stacktrace.Propagate(err, "failed to stat '%s'", srcPath)
		}
		if err := copyFile(srcPath, filepath.Join(outputDirpath, filename), info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

func countItems(roleDirpath string) (int, error) {
	entries, err := os.ReadDir(roleDirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, stacktrace.Propagate(err, "failed to read '%s'", roleDirpath)
	}
	return len(entries), nil
}
