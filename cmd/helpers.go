package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kurtosis-tech/stacktrace"
	"github.com/mattn/go-isatty"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/database"
	"github.com/layerworks/strata/internal/layer"
	"github.com/layerworks/strata/internal/profile"
)

// effectiveBaseDirpath returns the base layer directory, honoring any
// config.yml override.
func effectiveBaseDirpath() string {
	return strataConfig.ResolveBaseDirpath(strataDirpath)
}

// effectiveStacksDirpath returns the stacks root, honoring any config.yml
// override.
func effectiveStacksDirpath() string {
	return strataConfig.ResolveStacksDirpath(strataDirpath)
}

// newResolver builds a resolver over the configured base and stacks
// directories, loading registry metadata when stacks.yml exists.
func newResolver() (layer.Resolver, error) {
	registry, err := layer.ReadRegistry(config.GetRegistryFilepath(strataDirpath))
	if err != nil {
		return layer.Resolver{}, stacktrace.Propagate(err, "failed to read stack registry")
	}
	return layer.Resolver{
		BaseDirpath:   effectiveBaseDirpath(),
		StacksDirpath: effectiveStacksDirpath(),
		Registry:      registry,
	}, nil
}

// resolveRequestedStacks turns a stack-list argument and/or a --profile flag
// into the list of requested stack names. Exactly one source wins: an explicit
// stack list, the named profile, or the configured default profile. The
// returned profile name is empty when an explicit stack list was given.
func resolveRequestedStacks(stacksArg string, profileFlag string) ([]string, string, error) {
	if stacksArg != "" && profileFlag != "" {
		return nil, "", stacktrace.NewError(
			"cannot combine a stack list with --%s; pass one or the other", profileFlagName)
	}

	if stacksArg != "" {
		stackNames, err := layer.ParseStacksArg(stacksArg)
		if err != nil {
			return nil, "", err
		}
		return stackNames, "", nil
	}

	profileName := profileFlag
	if profileName == "" {
		profileName = strataConfig.DefaultProfile
	}
	if profileName == "" {
		return nil, "", stacktrace.NewError(
			"no stacks specified; pass a stack list (e.g. 'rails+react-nextjs'), use --%s, or set defaultProfile in %s",
			profileFlagName,
			config.ConfigFilename,
		)
	}

	profiles, err := profile.ReadProfiles(config.GetProfilesFilepath(strataDirpath))
	if err != nil {
		return nil, "", stacktrace.Propagate(err, "failed to read profiles")
	}
	prof, err := profiles.Get(profileName)
	if err != nil {
		return nil, "", err
	}
	return prof.Stacks, profileName, nil
}

// splitStacksAndTarget interprets the positional arguments of commands that
// take an optional stack list followed by an optional target directory. When
// --profile is set the stack list may not appear, so the first positional is
// the target.
func splitStacksAndTarget(args []string, profileFlag string) (string, string, error) {
	stacksArg := ""
	targetDirpath := "."

	if profileFlag != "" {
		if len(args) > 1 {
			return "", "", stacktrace.NewError(
				"--%s takes at most one positional argument (the target directory)", profileFlagName)
		}
		if len(args) == 1 {
			targetDirpath = args[0]
		}
		return stacksArg, targetDirpath, nil
	}

	if len(args) >= 1 {
		stacksArg = args[0]
	}
	if len(args) == 2 {
		targetDirpath = args[1]
	}
	return stacksArg, targetDirpath, nil
}

// printResolutionWarnings reports the non-fatal outcomes of stack resolution
// on stderr.
func printResolutionWarnings(resolution *layer.Resolution) {
	if resolution.BaseMissing {
		fmt.Fprintf(os.Stderr, "Warning: base directory '%s' does not exist; composing without a base layer\n",
			effectiveBaseDirpath())
	}
	for _, missing := range resolution.MissingDeps {
		fmt.Fprintf(os.Stderr, "Warning: stack '%s' depends on '%s', which does not exist; skipping it\n",
			missing.DependentName, missing.MissingName)
	}
}

// printComposeWarnings reports the non-fatal outcomes of composition on
// stderr.
func printComposeWarnings(result *compose.Result) {
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
}

// confirmReplace asks the user a yes/no question on the terminal. A non-TTY
// stdin answers no.
func confirmReplace(prompt string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// openDB opens the run-history database under the strata directory.
func openDB() (*database.DB, error) {
	db, err := database.Open(config.GetDatabaseFilepath(strataDirpath))
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to open database")
	}
	return db, nil
}

// recordRun stores a run-history row. History is best-effort: failures are
// reported as warnings and never fail the command that triggered them.
func recordRun(command string, stackNames []string, profileName string, targetDirpath string, status string, runErr error) {
	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run history: %v\n", err)
		return
	}
	defer db.Close()

	errorText := ""
	if runErr != nil {
		errorText = runErr.Error()
	}
	if _, err := db.RecordRun(command, stackNames, profileName, targetDirpath, status, errorText); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run history: %v\n", err)
	}
}
