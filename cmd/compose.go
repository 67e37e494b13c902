package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kurtosis-tech/stacktrace"
	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/database"
	"github.com/layerworks/strata/internal/layer"
)

var composeOutputFlag string
var composeProfileFlag string

var composeCmd = &cobra.Command{
	Use:   composeCmdStr + " [stacks]",
	Short: "Compose the base layer and the given stacks into a directory",
	Long: "Compose the base layer and the given stacks into a single merged directory,\n" +
		"without touching any project. Stacks are separated with '+' or ','; each\n" +
		"stack's dependencies are applied before it.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVarP(
		&composeOutputFlag,
		outputFlagName,
		"o",
		"",
		"write into this directory instead of a fresh temp directory (must be empty or absent)",
	)
	composeCmd.Flags().StringVar(
		&composeProfileFlag,
		profileFlagName,
		"",
		"compose a named profile's stacks instead of passing a stack list",
	)
	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	stacksArg := ""
	if len(args) == 1 {
		stacksArg = args[0]
	}
	stackNames, profileName, err := resolveRequestedStacks(stacksArg, composeProfileFlag)
	if err != nil {
		return err
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}
	resolution, err := resolver.Resolve(stackNames)
	if err != nil {
		recordRun(composeCmdStr, stackNames, profileName, "", database.RunStatusFailed, err)
		return err
	}
	printResolutionWarnings(resolution)

	outputDirpath := composeOutputFlag
	if outputDirpath == "" {
		outputDirpath, err = os.MkdirTemp("", "strata-compose-*")
		if err != nil {
			return stacktrace.Propagate(err, "failed to create temp output directory")
		}
	} else if err := ensureFreshDir(outputDirpath); err != nil {
		return err
	}

	result, err := compose.Compose(compose.Request{
		Layers:        resolution.Layers,
		OutputDirpath: outputDirpath,
	})
	if err != nil {
		// Never leave a half-written composition behind.
		os.RemoveAll(outputDirpath)
		recordRun(composeCmdStr, stackNames, profileName, outputDirpath, database.RunStatusFailed, err)
		return err
	}
	printComposeWarnings(result)

	recordRun(composeCmdStr, stackNames, profileName, outputDirpath, database.RunStatusCompleted, nil)

	fmt.Printf("Composed %d layers: %s\n", len(result.LayerNames), strings.Join(result.LayerNames, " + "))
	for _, roleDirname := range layer.NamedItemDirnames {
		if count := result.ItemCounts[roleDirname]; count > 0 {
			fmt.Printf("  %s: %d\n", roleDirname, count)
		}
	}
	fmt.Printf("Output: %s\n", outputDirpath)
	return nil
}

// ensureFreshDir creates dirpath if absent, and rejects it when it already
// exists with contents. Compositions always start from an empty directory.
func ensureFreshDir(dirpath string) error {
	entries, err := os.ReadDir(dirpath)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dirpath, 0755); err != nil {
				return stacktrace.Propagate(err, "failed to create output directory '%s'", dirpath)
			}
			return nil
		}
		return stacktrace.Propagate(err, "failed to read output directory '%s'", dirpath)
	}
	if len(entries) > 0 {
		return stacktrace.NewError("output directory '%s' is not empty", dirpath)
	}
	return nil
}
