package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kurtosis-tech/stacktrace"
	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/layer"
)

var validateCmd = &cobra.Command{
	Use:   validateCmdStr + " [stacks]",
	Short: "Check stacks for broken dependencies, bad settings.json, and item conflicts",
	Long: "With no argument, validates every stack individually. With a stack list,\n" +
		"validates the combination the way '" + installCmdStr + "' would resolve it, including\n" +
		"compatibility constraints and cross-stack item conflicts.",
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return validateCombination(resolver, args[0])
	}
	return validateAllStacks(resolver)
}

func validateAllStacks(resolver layer.Resolver) error {
	stackNames, err := layer.ListStacks(resolver.StacksDirpath)
	if err != nil {
		return err
	}
	if len(stackNames) == 0 {
		fmt.Printf("No stacks found in '%s'\n", resolver.StacksDirpath)
		return nil
	}

	failedCount := 0
	baseLayer := layer.Layer{Name: layer.BaseLayerName, Dirpath: resolver.BaseDirpath}
	if baseExists, err := baseLayer.Exists(); err != nil {
		return err
	} else if baseExists {
		if !reportStackResult(layer.BaseLayerName, nil, checkLayerSettings(baseLayer)) {
			failedCount++
		}
	}

	for _, name := range stackNames {
		var warnings []string
		resolution, resolveErr := resolver.Resolve([]string{name})
		if resolveErr == nil {
			warnings = missingDepWarnings(resolution)
		}

		var settingsErr error
		if resolveErr == nil {
			stackLayer := layer.Layer{Name: name, Dirpath: filepath.Join(resolver.StacksDirpath, name)}
			settingsErr = checkLayerSettings(stackLayer)
		}

		fatal := resolveErr
		if fatal == nil {
			fatal = settingsErr
		}
		if !reportStackResult(name, warnings, fatal) {
			failedCount++
		}
	}

	if failedCount > 0 {
		return stacktrace.NewError("validation failed for %d stack(s)", failedCount)
	}
	return nil
}

func validateCombination(resolver layer.Resolver, stacksArg string) error {
	stackNames, err := layer.ParseStacksArg(stacksArg)
	if err != nil {
		return err
	}

	resolution, err := resolver.Resolve(stackNames)
	if err != nil {
		return err
	}

	failedCount := 0
	for _, resolvedLayer := range resolution.Layers {
		if !reportStackResult(resolvedLayer.Name, nil, checkLayerSettings(resolvedLayer)) {
			failedCount++
		}
	}

	warnings := missingDepWarnings(resolution)
	conflictWarnings, err := itemConflictWarnings(resolution)
	if err != nil {
		return err
	}
	warnings = append(warnings, conflictWarnings...)

	label := fmt.Sprintf("Combination %s", strings.Join(stackNames, "+"))
	if failedCount > 0 {
		fmt.Printf("%s: %s\n", label, colorize("FAIL", ansiRed))
		return stacktrace.NewError("validation failed for %d layer(s)", failedCount)
	}
	if len(warnings) > 0 {
		fmt.Printf("%s: %s (%d warnings)\n", label, colorize("ok", ansiGreen), len(warnings))
		for _, warning := range warnings {
			fmt.Printf("  %s %s\n", colorize("warning:", ansiYellow), warning)
		}
		return nil
	}
	fmt.Printf("%s: %s\n", label, colorize("ok", ansiGreen))
	return nil
}

// reportStackResult prints one stack's validation line and returns whether it
// passed.
func reportStackResult(name string, warnings []string, fatal error) bool {
	if fatal != nil {
		fmt.Printf("%s: %s\n", name, colorize("FAIL", ansiRed))
		fmt.Printf("  %s\n", firstErrorLine(fatal))
		return false
	}
	if len(warnings) > 0 {
		fmt.Printf("%s: %s (%d warnings)\n", name, colorize("ok", ansiGreen), len(warnings))
		for _, warning := range warnings {
			fmt.Printf("  %s %s\n", colorize("warning:", ansiYellow), warning)
		}
		return true
	}
	fmt.Printf("%s: %s\n", name, colorize("ok", ansiGreen))
	return true
}

// checkLayerSettings verifies the layer's settings.json parses as a JSON
// object. An absent settings.json is fine.
func checkLayerSettings(l layer.Layer) error {
	data, found, err := l.Settings()
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, err := compose.ParseSettingsDoc(data); err != nil {
		return stacktrace.Propagate(err, "%s is not mergeable", config.SettingsFilename)
	}
	return nil
}

func missingDepWarnings(resolution *layer.Resolution) []string {
	var warnings []string
	for _, missing := range resolution.MissingDeps {
		warnings = append(warnings, fmt.Sprintf(
			"depends on '%s' (via '%s'), which does not exist", missing.MissingName, missing.DependentName))
	}
	return warnings
}

// itemConflictWarnings reports named items that more than one stack provides.
// The base layer is excluded: overriding base items is what stacks are for.
func itemConflictWarnings(resolution *layer.Resolution) ([]string, error) {
	var warnings []string
	for _, roleDirname := range layer.NamedItemDirnames {
		providers := make(map[string][]string)
		var itemOrder []string
		for _, resolvedLayer := range resolution.Layers {
			if resolvedLayer.Name == layer.BaseLayerName {
				continue
			}
			itemNames, err := resolvedLayer.ItemNames(roleDirname)
			if err != nil {
				return nil, err
			}
			for _, itemName := range itemNames {
				if len(providers[itemName]) == 0 {
					itemOrder = append(itemOrder, itemName)
				}
				providers[itemName] = append(providers[itemName], resolvedLayer.Name)
			}
		}
		for _, itemName := range itemOrder {
			names := providers[itemName]
			if len(names) < 2 {
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"%s/%s is provided by %s; %s wins",
				roleDirname, itemName, strings.Join(names, " and "), names[len(names)-1]))
		}
	}
	return warnings, nil
}

// firstErrorLine trims an error to its first line, dropping the stack trace
// detail that follows.
func firstErrorLine(err error) string {
	text := err.Error()
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
