package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/lockfile"
	"github.com/layerworks/strata/internal/version"
)

var statusCmd = &cobra.Command{
	Use:   statusCmdStr + " [target]",
	Short: "Show what is installed in the target's .claude directory and whether it drifted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	targetDirpath := "."
	if len(args) == 1 {
		targetDirpath = args[0]
	}
	claudeDirpath := filepath.Join(targetDirpath, config.ClaudeDirname)

	lock, found, err := lockfile.Read(claudeDirpath)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("No install found at '%s' (no %s)\n", claudeDirpath, config.LockFilename)
		return nil
	}

	checkInstallVersion(lock.Version)

	fmt.Printf("Install: %s\n", claudeDirpath)
	fmt.Printf("Version: %s\n", lock.Version)
	fmt.Printf("Installed: %s\n", lock.InstalledAt.Local().Format("2006-01-02 15:04"))
	if lock.Profile != "" {
		fmt.Printf("Profile: %s\n", lock.Profile)
	}
	fmt.Printf("Stacks: %s\n", strings.Join(lock.Stacks, " + "))

	current, err := lockfile.ComputeChecksums(claudeDirpath)
	if err != nil {
		return err
	}
	diff := lock.DiffAgainst(current)
	if diff.IsClean() {
		fmt.Println("\nAll installed files match the lockfile.")
		return nil
	}

	fmt.Println()
	printDiffSection("Modified", diff.Modified, ansiYellow)
	printDiffSection("Deleted", diff.Deleted, ansiRed)
	printDiffSection("Added", diff.Added, ansiGreen)
	return nil
}

func printDiffSection(label string, relpaths []string, ansiColor string) {
	if len(relpaths) == 0 {
		return
	}
	fmt.Printf("%s files (%d):\n", colorize(label, ansiColor), len(relpaths))
	for _, relpath := range relpaths {
		fmt.Printf("  %s\n", relpath)
	}
}

// checkInstallVersion warns when the install was written by a newer CLI than
// this one, since the lockfile format may have moved on.
func checkInstallVersion(installVersion string) {
	if !semver.IsValid(installVersion) || !semver.IsValid(version.Version) {
		return
	}
	if semver.Compare(installVersion, version.Version) > 0 {
		fmt.Fprintf(os.Stderr,
			"Warning: this install was written by strata %s, which is newer than this CLI (%s); consider upgrading\n",
			installVersion, version.Version)
	}
}
