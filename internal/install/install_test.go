package install

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/layerworks/strata/internal/lockfile"
)

// writeComposedDir is a test helper that builds a fake composed directory
// with the given relative-path -> content files.
func writeComposedDir(t *testing.T, files map[string]string) string {
	t.Helper()
	composedDirpath := t.TempDir()
	for relpath, content := range files {
		fp := filepath.Join(composedDirpath, filepath.FromSlash(relpath))
		if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return composedDirpath
}

func defaultTestRecord() Record {
	return Record{
		Version: "v0.4.1",
		Stacks:  []string{"rails"},
	}
}

func TestInstall_FreshTarget(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{
		"CLAUDE.md":          "# rules\n",
		"settings.json":      "{}\n",
		"agents/reviewer.md": "reviewer\n",
		"hooks/format.sh":    "#!/bin/sh\n",
	})
	targetDirpath := t.TempDir()

	result, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replaced {
		t.Error("expected fresh install, not a replacement")
	}

	claudeDirpath := filepath.Join(targetDirpath, ".claude")
	if result.ClaudeDirpath != claudeDirpath {
		t.Errorf("unexpected claude dirpath: %q", result.ClaudeDirpath)
	}

	t.Run("places the composed files", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(claudeDirpath, "agents", "reviewer.md"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "reviewer\n" {
			t.Errorf("unexpected content: %q", data)
		}
	})

	t.Run("marks hook scripts executable", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(claudeDirpath, "hooks", "format.sh"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Mode().Perm()&0100 == 0 {
			t.Errorf("expected executable hook, got mode %v", info.Mode().Perm())
		}
	})

	t.Run("writes the context gitkeep", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(claudeDirpath, "context", "features", ".gitkeep")); err != nil {
			t.Errorf("expected context/features/.gitkeep: %v", err)
		}
	})

	t.Run("seeds settings.local.json", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(claudeDirpath, "settings.local.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"allow": []`) || !strings.Contains(string(data), `"deny": []`) {
			t.Errorf("unexpected seed content: %q", data)
		}
	})

	t.Run("adds the managed gitignore block", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(targetDirpath, ".gitignore"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), ".claude/settings.local.json") {
			t.Errorf("expected managed entries, got %q", data)
		}
	})

	t.Run("writes a lockfile covering the installed files", func(t *testing.T) {
		lock, found, err := lockfile.Read(claudeDirpath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Fatal("expected a lockfile")
		}
		if lock.Version != "v0.4.1" {
			t.Errorf("unexpected version: %q", lock.Version)
		}
		if _, ok := lock.Files["CLAUDE.md"]; !ok {
			t.Error("expected CLAUDE.md in lockfile")
		}
		if _, ok := lock.Files["strata.lock"]; ok {
			t.Error("expected the lockfile to exclude itself")
		}
		if _, ok := lock.Files["settings.local.json"]; ok {
			t.Error("expected settings.local.json to be excluded from the lockfile")
		}
	})
}

func TestInstall_RefusesExistingWithoutForce(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
	targetDirpath := t.TempDir()
	claudeDirpath := filepath.Join(targetDirpath, ".claude")
	if err := os.MkdirAll(claudeDirpath, 0755); err != nil {
		t.Fatal(err)
	}
	sentinelFilepath := filepath.Join(claudeDirpath, "keep.md")
	if err := os.WriteFile(sentinelFilepath, []byte("precious\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{})
	if err == nil {
		t.Fatal("expected error for existing install without force")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("expected remediation in error, got: %v", err)
	}
	if _, err := os.Stat(sentinelFilepath); err != nil {
		t.Errorf("expected existing install to be untouched: %v", err)
	}
}

func TestInstall_ForceReplaces(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
	targetDirpath := t.TempDir()
	claudeDirpath := filepath.Join(targetDirpath, ".claude")
	if err := os.MkdirAll(claudeDirpath, 0755); err != nil {
		t.Fatal(err)
	}
	staleFilepath := filepath.Join(claudeDirpath, "stale.md")
	if err := os.WriteFile(staleFilepath, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Replaced {
		t.Error("expected Replaced=true")
	}
	if _, err := os.Stat(staleFilepath); !os.IsNotExist(err) {
		t.Error("expected stale file to be removed by the replacement")
	}
	data, err := os.ReadFile(filepath.Join(claudeDirpath, "CLAUDE.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "new\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestInstall_PreservesContext(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
	targetDirpath := t.TempDir()
	claudeDirpath := filepath.Join(targetDirpath, ".claude")
	learnedFilepath := filepath.Join(claudeDirpath, "context", "features", "learned.md")
	if err := os.MkdirAll(filepath.Dir(learnedFilepath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(learnedFilepath, []byte("accumulated knowledge\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{
		Force:           true,
		PreserveContext: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(learnedFilepath)
	if err != nil {
		t.Fatalf("expected preserved context file: %v", err)
	}
	if string(data) != "accumulated knowledge\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestInstall_DiscardsContextWhenNotPreserving(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
	targetDirpath := t.TempDir()
	claudeDirpath := filepath.Join(targetDirpath, ".claude")
	learnedFilepath := filepath.Join(claudeDirpath, "context", "features", "learned.md")
	if err := os.MkdirAll(filepath.Dir(learnedFilepath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(learnedFilepath, []byte("accumulated knowledge\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(learnedFilepath); !os.IsNotExist(err) {
		t.Error("expected context to be discarded without PreserveContext")
	}
}

func TestInstall_DryRunWritesNothing(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{
		"CLAUDE.md":       "new\n",
		"hooks/format.sh": "#!/bin/sh\n",
	})
	targetDirpath := t.TempDir()

	result, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(targetDirpath, ".claude")); !os.IsNotExist(err) {
		t.Error("expected dry run to leave the target untouched")
	}
	if _, err := os.Stat(filepath.Join(targetDirpath, ".gitignore")); !os.IsNotExist(err) {
		t.Error("expected dry run to leave .gitignore untouched")
	}

	if len(result.Actions) == 0 {
		t.Fatal("expected planned actions")
	}
	joined := strings.Join(result.Actions, "\n")
	if !strings.Contains(joined, "create") || !strings.Contains(joined, "hooks/format.sh") {
		t.Errorf("expected create and hook actions, got:\n%s", joined)
	}
}

func TestInstall_GitignoreHandling(t *testing.T) {
	t.Run("block is added once across reinstalls", func(t *testing.T) {
		composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
		targetDirpath := t.TempDir()

		if _, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{Force: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(targetDirpath, ".gitignore"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count := strings.Count(string(data), ".claude/settings.local.json"); count != 1 {
			t.Errorf("expected managed entry exactly once, found %d times in %q", count, data)
		}
	})

	t.Run("existing entries are kept", func(t *testing.T) {
		composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
		targetDirpath := t.TempDir()
		if err := os.WriteFile(filepath.Join(targetDirpath, ".gitignore"), []byte("node_modules/\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(targetDirpath, ".gitignore"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), "node_modules/") {
			t.Errorf("expected existing entries to survive, got %q", data)
		}
	})

	t.Run("skip flag leaves gitignore alone", func(t *testing.T) {
		composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
		targetDirpath := t.TempDir()

		if _, err := Install(composedDirpath, targetDirpath, defaultTestRecord(), Options{SkipGitignore: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(targetDirpath, ".gitignore")); !os.IsNotExist(err) {
			t.Error("expected no .gitignore to be created")
		}
	})
}

func TestInstall_MissingTarget(t *testing.T) {
	composedDirpath := writeComposedDir(t, map[string]string{"CLAUDE.md": "new\n"})
	if _, err := Install(composedDirpath, filepath.Join(t.TempDir(), "nope"), defaultTestRecord(), Options{}); err == nil {
		t.Fatal("expected error for missing target directory")
	}
}
