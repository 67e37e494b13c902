package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kurtosis-tech/stacktrace"
	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/database"
	"github.com/layerworks/strata/internal/install"
	"github.com/layerworks/strata/internal/layer"
	"github.com/layerworks/strata/internal/version"
)

var installProfileFlag string
var installForceFlag bool
var installPreserveContextFlag bool
var installDryRunFlag bool
var installSkipGitignoreFlag bool

var installCmd = &cobra.Command{
	Use:   installCmdStr + " [stacks] [target]",
	Short: "Compose stacks and install the result as the target's .claude directory",
	Long: "Compose the base layer and the given stacks, then install the merged result\n" +
		"as <target>/.claude. The target defaults to the current directory. An existing\n" +
		".claude directory is only replaced with --" + forceFlagName + " or interactive confirmation.",
	Args: cobra.RangeArgs(0, 2),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(
		&installProfileFlag,
		profileFlagName,
		"",
		"install a named profile's stacks instead of passing a stack list",
	)
	installCmd.Flags().BoolVar(
		&installForceFlag,
		forceFlagName,
		false,
		"replace an existing .claude directory without asking",
	)
	installCmd.Flags().BoolVar(
		&installPreserveContextFlag,
		preserveContextFlagName,
		true,
		"carry the existing .claude/context directory over into the new install",
	)
	installCmd.Flags().BoolVar(
		&installDryRunFlag,
		dryRunFlagName,
		false,
		"print what would be installed without writing anything",
	)
	installCmd.Flags().BoolVar(
		&installSkipGitignoreFlag,
		skipGitignoreFlagName,
		false,
		"do not manage the target's .gitignore entries",
	)
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	stacksArg, targetDirpath, err := splitStacksAndTarget(args, installProfileFlag)
	if err != nil {
		return err
	}
	stackNames, profileName, err := resolveRequestedStacks(stacksArg, installProfileFlag)
	if err != nil {
		return err
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}
	resolution, err := resolver.Resolve(stackNames)
	if err != nil {
		recordRun(installCmdStr, stackNames, profileName, targetDirpath, database.RunStatusFailed, err)
		return err
	}
	printResolutionWarnings(resolution)

	force := installForceFlag
	if !force && !installDryRunFlag {
		claudeDirpath := filepath.Join(targetDirpath, config.ClaudeDirname)
		if _, err := os.Stat(claudeDirpath); err == nil {
			if !confirmReplace(fmt.Sprintf("'%s' already exists. Replace it?", claudeDirpath)) {
				return stacktrace.NewError(
					"'%s' already exists; re-run with --%s to replace it", claudeDirpath, forceFlagName)
			}
			force = true
		}
	}

	composedDirpath, err := os.MkdirTemp("", "strata-compose-*")
	if err != nil {
		return stacktrace.Propagate(err, "failed to create temp compose directory")
	}
	defer os.RemoveAll(composedDirpath)

	composeResult, err := compose.Compose(compose.Request{
		Layers:        resolution.Layers,
		OutputDirpath: composedDirpath,
	})
	if err != nil {
		recordRun(installCmdStr, stackNames, profileName, targetDirpath, database.RunStatusFailed, err)
		return err
	}
	printComposeWarnings(composeResult)

	installResult, err := install.Install(
		composedDirpath,
		targetDirpath,
		install.Record{
			Version: version.Version,
			Profile: profileName,
			Stacks:  stackNames,
		},
		install.Options{
			Force:           force,
			PreserveContext: installPreserveContextFlag,
			DryRun:          installDryRunFlag,
			SkipGitignore:   installSkipGitignoreFlag,
		},
	)
	if err != nil {
		recordRun(installCmdStr, stackNames, profileName, targetDirpath, database.RunStatusFailed, err)
		return err
	}

	if installDryRunFlag {
		fmt.Printf("Dry run; would install %s into '%s':\n",
			strings.Join(composeResult.LayerNames, " + "), installResult.ClaudeDirpath)
		for _, action := range installResult.Actions {
			fmt.Printf("  - %s\n", action)
		}
		return nil
	}

	recordRun(installCmdStr, stackNames, profileName, targetDirpath, database.RunStatusCompleted, nil)

	fmt.Printf("Installed %s into '%s'\n",
		strings.Join(composeResult.LayerNames, " + "), installResult.ClaudeDirpath)
	for _, roleDirname := range layer.NamedItemDirnames {
		if count := composeResult.ItemCounts[roleDirname]; count > 0 {
			fmt.Printf("  %s: %d\n", roleDirname, count)
		}
	}
	fmt.Printf("Lockfile: %s\n", filepath.Join(installResult.ClaudeDirpath, config.LockFilename))
	return nil
}
