package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kurtosis-tech/stacktrace"

	"github.com/layerworks/strata/internal/compose"
	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/lockfile"
)

// settingsLocalTemplate seeds settings.local.json so that per-developer
// permission grants have a place to live without touching the composed
// settings.json.
const settingsLocalTemplate = `{
  "permissions": {
    "allow": [],
    "deny": []
  }
}
`

// gitignoreMarker heads the managed .gitignore block; its presence means the
// block was already added.
const gitignoreMarker = "# managed by strata"

var gitignoreBlock = gitignoreMarker + "\n" +
	config.ClaudeDirname + "/" + config.SettingsLocalFilename + "\n" +
	config.ClaudeDirname + "/" + config.ContextDirname + "/\n"

// Options control how a composed directory is placed under a target.
type Options struct {
	Force           bool // replace an existing .claude install
	PreserveContext bool // carry the existing context/ through a replacement
	DryRun          bool // report actions without touching the filesystem
	SkipGitignore   bool // leave the target's .gitignore alone
}

// Record carries the request metadata the lockfile records.
type Record struct {
	Version string
	Profile string
	Stacks  []string
}

// Result reports what the installer did, or would do for a dry run.
type Result struct {
	ClaudeDirpath string
	Replaced      bool     // an existing install was replaced
	Actions       []string // human-readable action log, in execution order
}

// Install places an already-composed directory under <target>/.claude and
// runs the post-placement steps: hook scripts are marked executable, the
// context scaffolding gets its .gitkeep, settings.local.json is seeded if
// absent, the target's .gitignore gains the managed block, and the lockfile
// is written. An existing install is only replaced with Force; with
// PreserveContext its context/ contents survive the replacement.
func Install(composedDirpath string, targetDirpath string, rec Record, opts Options) (*Result, error) {
	targetInfo, err := os.Stat(targetDirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, stacktrace.NewError("target directory '%s' does not exist", targetDirpath)
		}
		return nil, stacktrace.Propagate(err, "failed to stat target directory '%s'", targetDirpath)
	}
	if !targetInfo.IsDir() {
		return nil, stacktrace.NewError("target path '%s' is not a directory", targetDirpath)
	}

	claudeDirpath := filepath.Join(targetDirpath, config.ClaudeDirname)
	result := &Result{ClaudeDirpath: claudeDirpath}

	existing := false
	if _, err := os.Stat(claudeDirpath); err == nil {
		existing = true
	} else if !os.IsNotExist(err) {
		return nil, stacktrace.Propagate(err, "failed to stat '%s'", claudeDirpath)
	}

	if existing && !opts.Force {
		return nil, stacktrace.NewError(
			"'%s' already exists; re-run with --force to replace it", claudeDirpath)
	}

	if existing {
		result.Replaced = true
		if opts.PreserveContext {
			result.Actions = append(result.Actions, "preserve context/ from the existing install")
		}
		result.Actions = append(result.Actions, fmt.Sprintf("replace %s", claudeDirpath))
	} else {
		result.Actions = append(result.Actions, fmt.Sprintf("create %s", claudeDirpath))
	}

	hookScripts, err := findHookScripts(composedDirpath)
	if err != nil {
		return nil, err
	}
	for _, relPath := range hookScripts {
		result.Actions = append(result.Actions, fmt.Sprintf("mark executable: %s", relPath))
	}
	result.Actions = append(result.Actions, fmt.Sprintf("write %s/%s/%s",
		config.ClaudeDirname, config.ContextDirname+"/"+config.FeaturesDirname, config.GitkeepFilename))
	result.Actions = append(result.Actions, fmt.Sprintf("seed %s if absent", config.SettingsLocalFilename))
	if !opts.SkipGitignore {
		result.Actions = append(result.Actions, fmt.Sprintf("ensure managed block in %s", config.GitignoreFilename))
	}
	result.Actions = append(result.Actions, fmt.Sprintf("write %s", config.LockFilename))

	if opts.DryRun {
		return result, nil
	}

	if existing && opts.PreserveContext {
		existingContextDirpath := filepath.Join(claudeDirpath, config.ContextDirname)
		if _, err := os.Stat(existingContextDirpath); err == nil {
			preservedDirpath := filepath.Join(composedDirpath, config.ContextDirname)
			if err := compose.CopyDir(existingContextDirpath, preservedDirpath); err != nil {
				return nil, stacktrace.Propagate(err, "failed to preserve existing context directory")
			}
		}
	}

	if existing {
		if err := os.RemoveAll(claudeDirpath); err != nil {
			return nil, stacktrace.Propagate(err, "failed to remove existing '%s'", claudeDirpath)
		}
	}

	if err := compose.CopyDir(composedDirpath, claudeDirpath); err != nil {
		return nil, stacktrace.Propagate(err, "failed to place composed directory at '%s'", claudeDirpath)
	}

	for _, relPath := range hookScripts {
		scriptPath := filepath.Join(claudeDirpath, relPath)
		if err := os.Chmod(scriptPath, 0755); err != nil {
			return nil, stacktrace.Propagate(err, "failed to mark '%s' executable", scriptPath)
		}
	}

	gitkeepFilepath := filepath.Join(claudeDirpath, config.ContextDirname, config.FeaturesDirname, config.GitkeepFilename)
	if err := os.MkdirAll(filepath.Dir(gitkeepFilepath), 0755); err != nil {
		return nil, stacktrace.Propagate(err, "failed to create context directories")
	}
	if err := os.WriteFile(gitkeepFilepath, nil, 0644); err != nil {
		return nil, stacktrace.Propagate(err, "failed to write '%s'", gitkeepFilepath)
	}

	settingsLocalFilepath := filepath.Join(claudeDirpath, config.SettingsLocalFilename)
	if _, err := os.Stat(settingsLocalFilepath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsLocalFilepath, []byte(settingsLocalTemplate), 0644); err != nil {
			return nil, stacktrace.Propagate(err, "failed to seed '%s'", settingsLocalFilepath)
		}
	}

	if !opts.SkipGitignore {
		if err := ensureGitignoreBlock(targetDirpath); err != nil {
			return nil, err
		}
	}

	checksums, err := lockfile.ComputeChecksums(claudeDirpath)
	if err != nil {
		return nil, err
	}
	lock := &lockfile.Lockfile{
		Version:     rec.Version,
		InstalledAt: time.Now().UTC(),
		Profile:     rec.Profile,
		Stacks:      rec.Stacks,
		Files:       checksums,
	}
	if err := lockfile.Write(claudeDirpath, lock); err != nil {
		return nil, err
	}

	return result, nil
}

// findHookScripts returns the slash-separated relative paths (from the
// composed root) of every .sh file under hooks/.
func findHookScripts(composedDirpath string) ([]string, error) {
	hooksDirpath := filepath.Join(composedDirpath, config.HooksDirname)
	if _, err := os.Stat(hooksDirpath); os.IsNotExist(err) {
		return nil, nil
	}

	var scripts []string
	err := filepath.Walk(hooksDirpath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".sh") {
			return nil
		}
		relPath, err := filepath.Rel(composedDirpath, path)
		if err != nil {
			return stacktrace.Propagate(err, "failed to compute relative path")
		}
		scripts = append(scripts, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to scan hook scripts in '%s'", hooksDirpath)
	}
	return scripts, nil
}

// ensureGitignoreBlock appends the managed ignore block to the target's
// .gitignore exactly once, creating the file if needed.
func ensureGitignoreBlock(targetDirpath string) error {
	gitignoreFilepath := filepath.Join(targetDirpath, config.GitignoreFilename)

	existing, err := os.ReadFile(gitignoreFilepath)
	if err != nil && !os.IsNotExist(err) {
		return stacktrace.Propagate(err, "failed to read '%s'", gitignoreFilepath)
	}
	if strings.Contains(string(existing), gitignoreMarker) {
		return nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content != "" {
		content += "\n"
	}
	content += gitignoreBlock

	if err := os.WriteFile(gitignoreFilepath, []byte(content), 0644); err != nil {
		return stacktrace.Propagate(err, "failed to write '%s'", gitignoreFilepath)
	}
	return nil
}
