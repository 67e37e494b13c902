package layer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLayerExists(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		l := Layer{Name: "rails", Dirpath: t.TempDir()}
		exists, err := l.Exists()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Error("expected layer to exist")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		l := Layer{Name: "rails", Dirpath: filepath.Join(t.TempDir(), "nope")}
		exists, err := l.Exists()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists {
			t.Error("expected layer to not exist")
		}
	})

	t.Run("plain file is an error", func(t *testing.T) {
		fp := filepath.Join(t.TempDir(), "rails")
		if err := os.WriteFile(fp, []byte("not a dir"), 0644); err != nil {
			t.Fatal(err)
		}
		l := Layer{Name: "rails", Dirpath: fp}
		if _, err := l.Exists(); err == nil {
			t.Fatal("expected error for non-directory layer path")
		}
	})
}

func TestLayerDocuments(t *testing.T) {
	t.Run("absent settings.json reports not found", func(t *testing.T) {
		l := Layer{Name: "rails", Dirpath: t.TempDir()}
		_, found, err := l.Settings()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected settings.json to be absent")
		}
	})

	t.Run("empty settings.json is present", func(t *testing.T) {
		dirpath := t.TempDir()
		if err := os.WriteFile(filepath.Join(dirpath, "settings.json"), []byte(""), 0644); err != nil {
			t.Fatal(err)
		}
		l := Layer{Name: "rails", Dirpath: dirpath}
		data, found, err := l.Settings()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Error("expected settings.json to be present")
		}
		if len(data) != 0 {
			t.Errorf("expected empty data, got %q", data)
		}
	})

	t.Run("CLAUDE.md content round-trips", func(t *testing.T) {
		dirpath := t.TempDir()
		if err := os.WriteFile(filepath.Join(dirpath, "CLAUDE.md"), []byte("# Rails\n"), 0644); err != nil {
			t.Fatal(err)
		}
		l := Layer{Name: "rails", Dirpath: dirpath}
		data, found, err := l.ClaudeMd()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Error("expected CLAUDE.md to be present")
		}
		if string(data) != "# Rails\n" {
			t.Errorf("unexpected content: %q", data)
		}
	})
}

func TestLayerDependencies(t *testing.T) {
	t.Run("absent depends.txt reports not found", func(t *testing.T) {
		l := Layer{Name: "rails", Dirpath: t.TempDir()}
		names, found, err := l.Dependencies()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected depends.txt to be absent")
		}
		if names != nil {
			t.Errorf("expected no names, got %v", names)
		}
	})

	t.Run("parses names and comments", func(t *testing.T) {
		dirpath := t.TempDir()
		content := "# deps\ncaching\nauth # shared\n"
		if err := os.WriteFile(filepath.Join(dirpath, "depends.txt"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		l := Layer{Name: "rails", Dirpath: dirpath}
		names, found, err := l.Dependencies()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Error("expected depends.txt to be present")
		}
		expected := []string{"caching", "auth"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected %v, got %v", expected, names)
		}
	})
}

func TestLayerItemNames(t *testing.T) {
	t.Run("lists items in lexical order", func(t *testing.T) {
		dirpath := t.TempDir()
		agentsDirpath := filepath.Join(dirpath, "agents")
		if err := os.MkdirAll(filepath.Join(agentsDirpath, "reviewer"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(agentsDirpath, "helper.md"), []byte("# helper\n"), 0644); err != nil {
			t.Fatal(err)
		}

		l := Layer{Name: "rails", Dirpath: dirpath}
		names, err := l.ItemNames("agents")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"helper.md", "reviewer"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected %v, got %v", expected, names)
		}
	})

	t.Run("missing role directory yields no items", func(t *testing.T) {
		l := Layer{Name: "rails", Dirpath: t.TempDir()}
		names, err := l.ItemNames("agents")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if names != nil {
			t.Errorf("expected no items, got %v", names)
		}
	})
}

func TestLayerPassthroughFilenames(t *testing.T) {
	t.Run("excludes composition documents and directories", func(t *testing.T) {
		dirpath := t.TempDir()
		for _, filename := range []string{"settings.json", "CLAUDE.md", "depends.txt", "README.md", ".mcp.json"} {
			if err := os.WriteFile(filepath.Join(dirpath, filename), []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
		}
		if err := os.MkdirAll(filepath.Join(dirpath, "agents"), 0755); err != nil {
			t.Fatal(err)
		}

		l := Layer{Name: "rails", Dirpath: dirpath}
		names, err := l.PassthroughFilenames()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{".mcp.json", "README.md"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected %v, got %v", expected, names)
		}
	})
}
