package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/kurtosis-tech/stacktrace"
	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/database"
	"github.com/layerworks/strata/internal/install"
	"github.com/layerworks/strata/internal/lockfile"
	"github.com/layerworks/strata/internal/version"
	"github.com/layerworks/strata/internal/watcher"
)

var watchProfileFlag string
var watchForceFlag bool
var watchSkipGitignoreFlag bool

var watchCmd = &cobra.Command{
	Use:   watchCmdStr + " [stacks] [target]",
	Short: "Install stacks and re-install whenever the base layer or a stack changes",
	Long: "Install the given stacks into the target, then keep watching the base layer\n" +
		"and stacks directories, re-composing and re-installing after each change. The\n" +
		"stack list is fixed at startup; stack contents and dependency lists are\n" +
		"re-read on every cycle.",
	Args: cobra.RangeArgs(0, 2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(
		&watchProfileFlag,
		profileFlagName,
		"",
		"watch a named profile's stacks instead of passing a stack list",
	)
	watchCmd.Flags().BoolVar(
		&watchForceFlag,
		forceFlagName,
		false,
		"replace an existing .claude directory even when strata did not write it",
	)
	watchCmd.Flags().BoolVar(
		&watchSkipGitignoreFlag,
		skipGitignoreFlagName,
		false,
		"do not manage the target's .gitignore entries",
	)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	stacksArg, targetDirpath, err := splitStacksAndTarget(args, watchProfileFlag)
	if err != nil {
		return err
	}
	stackNames, profileName, err := resolveRequestedStacks(stacksArg, watchProfileFlag)
	if err != nil {
		return err
	}

	// Watch repeatedly overwrites the target, so refuse to adopt a .claude
	// directory strata did not write unless forced.
	claudeDirpath := filepath.Join(targetDirpath, config.ClaudeDirname)
	if !watchForceFlag {
		if _, err := os.Stat(claudeDirpath); err == nil {
			_, found, err := lockfile.Read(claudeDirpath)
			if err != nil {
				return err
			}
			if !found {
				return stacktrace.NewError(
					"'%s' exists but has no %s; re-run with --%s to replace it",
					claudeDirpath, config.LockFilename, forceFlagName)
			}
		}
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	syncOnce := func() error {
		resolver, err := newResolver()
		if err != nil {
			return err
		}
		resolution, err := resolver.Resolve(stackNames)
		if err != nil {
			return err
		}
		printResolutionWarnings(resolution)

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
			return err
		}
		printComposeWarnings(composeResult)

		_, err = install.Install(
			composedDirpath,
			targetDirpath,
			install.Record{
				Version: version.Version,
				Profile: profileName,
				Stacks:  stackNames,
			},
			install.Options{
				Force:           true,
				PreserveContext: true,
				SkipGitignore:   watchSkipGitignoreFlag,
			},
		)
		return err
	}

	if err := syncOnce(); err != nil {
		recordRun(watchCmdStr, stackNames, profileName, targetDirpath, database.RunStatusFailed, err)
		return err
	}
	recordRun(watchCmdStr, stackNames, profileName, targetDirpath, database.RunStatusCompleted, nil)
	logger.Printf("Installed %s into '%s'", strings.Join(stackNames, "+"), claudeDirpath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A sync can outlast the debounce window; never let two installs race on
	// the same target.
	var syncMutex sync.Mutex

	fileWatcher := &watcher.Watcher{
		Roots:    []string{effectiveBaseDirpath(), effectiveStacksDirpath()},
		Debounce: strataConfig.GetWatchDebounce(),
		OnChange: func() {
			syncMutex.Lock()
			defer syncMutex.Unlock()
			if err := syncOnce(); err != nil {
				logger.Printf("Re-install failed: %v", err)
				recordRun(watchCmdStr, stackNames, profileName, targetDirpath, database.RunStatusFailed, err)
				return
			}
			recordRun(watchCmdStr, stackNames, profileName, targetDirpath, database.RunStatusCompleted, nil)
			logger.Printf("Re-installed '%s'", claudeDirpath)
		},
		Logger: logger,
	}

	logger.Printf("Watching %s and %s (Ctrl-C to stop)", effectiveBaseDirpath(), effectiveStacksDirpath())
	return fileWatcher.Run(ctx)
}
