package layer

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// newTestResolver is a test helper that creates an empty base directory and
// an empty stacks directory under a temp root.
func newTestResolver(t *testing.T) Resolver {
	t.Helper()
	root := t.TempDir()
	baseDirpath := filepath.Join(root, "base")
	stacksDirpath := filepath.Join(root, "stacks")
	if err := os.MkdirAll(baseDirpath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(stacksDirpath, 0755); err != nil {
		t.Fatal(err)
	}
	return Resolver{
		BaseDirpath:   baseDirpath,
		StacksDirpath: stacksDirpath,
		Registry:      Registry{},
	}
}

// writeStack is a test helper that creates a stack directory, declaring the
// given dependencies in its depends.txt when any are passed.
func writeStack(t *testing.T, stacksDirpath string, name string, dependencies ...string) {
	t.Helper()
	dirpath := filepath.Join(stacksDirpath, name)
	if err := os.MkdirAll(dirpath, 0755); err != nil {
		t.Fatal(err)
	}
	if len(dependencies) > 0 {
		content := strings.Join(dependencies, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dirpath, "depends.txt"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("base comes first, dependencies before dependents", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")
		writeStack(t, resolver.StacksDirpath, "react-nextjs")
		writeStack(t, resolver.StacksDirpath, "fullstack", "rails", "react-nextjs")

		resolution, err := resolver.Resolve([]string{"rails", "fullstack"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "rails", "react-nextjs", "fullstack"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("shared dependency keeps its first position", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "caching")
		writeStack(t, resolver.StacksDirpath, "rails", "caching")
		writeStack(t, resolver.StacksDirpath, "django", "caching")

		resolution, err := resolver.Resolve([]string{"rails", "django"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "caching", "rails", "django"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("duplicate request resolves once", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")

		resolution, err := resolver.Resolve([]string{"rails", "rails"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "rails"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("missing base is a warning, not an error", func(t *testing.T) {
		resolver := newTestResolver(t)
		if err := os.Remove(resolver.BaseDirpath); err != nil {
			t.Fatal(err)
		}
		writeStack(t, resolver.StacksDirpath, "rails")

		resolution, err := resolver.Resolve([]string{"rails"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resolution.BaseMissing {
			t.Error("expected BaseMissing=true")
		}
		expected := []string{"rails"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("unknown requested stack is fatal", func(t *testing.T) {
		resolver := newTestResolver(t)
		if _, err := resolver.Resolve([]string{"ghost"}); err == nil {
			t.Fatal("expected error for unknown stack")
		}
	})

	t.Run("unknown dependency is recorded and skipped", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails", "ghost")

		resolution, err := resolver.Resolve([]string{"rails"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "rails"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
		if len(resolution.MissingDeps) != 1 {
			t.Fatalf("expected 1 missing dependency, got %d", len(resolution.MissingDeps))
		}
		missing := resolution.MissingDeps[0]
		if missing.DependentName != "rails" || missing.MissingName != "ghost" {
			t.Errorf("unexpected missing dependency: %+v", missing)
		}
	})

	t.Run("dependency cycle is fatal and names the cycle", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "a", "b")
		writeStack(t, resolver.StacksDirpath, "b", "a")

		_, err := resolver.Resolve([]string{"a"})
		if err == nil {
			t.Fatal("expected error for dependency cycle")
		}
		if !strings.Contains(err.Error(), "a -> b -> a") {
			t.Errorf("expected cycle chain in error, got: %v", err)
		}
	})

	t.Run("transitive dependencies resolve depth-first", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "c")
		writeStack(t, resolver.StacksDirpath, "b", "c")
		writeStack(t, resolver.StacksDirpath, "a", "b")

		resolution, err := resolver.Resolve([]string{"a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "c", "b", "a"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("extends resolves as the first dependency", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")
		writeStack(t, resolver.StacksDirpath, "caching")
		writeStack(t, resolver.StacksDirpath, "rails-api", "caching")
		resolver.Registry = Registry{
			"rails-api": {Extends: "rails"},
		}

		resolution, err := resolver.Resolve([]string{"rails-api"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"base", "rails", "caching", "rails-api"}
		if !reflect.DeepEqual(resolution.LayerNames(), expected) {
			t.Errorf("expected %v, got %v", expected, resolution.LayerNames())
		}
	})

	t.Run("incompatible combination is fatal", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")
		writeStack(t, resolver.StacksDirpath, "django")
		resolver.Registry = Registry{
			"rails": {CompatibleWith: []string{"react-nextjs"}},
		}

		if _, err := resolver.Resolve([]string{"rails", "django"}); err == nil {
			t.Fatal("expected error for incompatible combination")
		}
	})

	t.Run("stack name with path separators is rejected", func(t *testing.T) {
		resolver := newTestResolver(t)
		if _, err := resolver.Resolve([]string{"../base"}); err == nil {
			t.Fatal("expected error for path-traversing stack name")
		}
	})
}

func TestListStacks(t *testing.T) {
	t.Run("lists stack directories in lexical order", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")
		writeStack(t, resolver.StacksDirpath, "caching")

		names, err := ListStacks(resolver.StacksDirpath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"caching", "rails"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected %v, got %v", expected, names)
		}
	})

	t.Run("ignores plain files in the stacks directory", func(t *testing.T) {
		resolver := newTestResolver(t)
		writeStack(t, resolver.StacksDirpath, "rails")
		if err := os.WriteFile(filepath.Join(resolver.StacksDirpath, "README.md"), []byte("notes\n"), 0644); err != nil {
			t.Fatal(err)
		}

		names, err := ListStacks(resolver.StacksDirpath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"rails"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected %v, got %v", expected, names)
		}
	})

	t.Run("missing stacks directory yields no stacks", func(t *testing.T) {
		names, err := ListStacks(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if names != nil {
			t.Errorf("expected no stacks, got %v", names)
		}
	})
}
