package watcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startTestWatcher is a test helper that runs a watcher over the given roots
// and returns a channel that receives after each OnChange invocation.
func startTestWatcher(t *testing.T, roots ...string) chan struct{} {
	t.Helper()

	changed := make(chan struct{}, 16)
	w := &Watcher{
		Roots:    roots,
		Debounce: 20 * time.Millisecond,
		OnChange: func() { changed <- struct{}{} },
		Logger:   log.New(io.Discard, "", 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("watcher returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop after context cancel")
		}
	})

	return changed
}

// writeUntilFire is a test helper that repeatedly writes a file until the
// watcher reports a change. The watch setup races with the write, so a
// single write could land before the watch is in place.
func writeUntilFire(t *testing.T, changed chan struct{}, filepathToWrite string) {
	t.Helper()

	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-changed:
			return
		case <-deadline:
			t.Fatalf("watcher never fired for writes to %s", filepathToWrite)
		case <-ticker.C:
			if err := os.WriteFile(filepathToWrite, []byte("change\n"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}
		}
	}
}

// drainUntilSettled is a test helper that consumes change notifications
// until none arrive for a quiet period, so earlier writes can't satisfy a
// later assertion.
func drainUntilSettled(t *testing.T, changed chan struct{}) {
	t.Helper()

	for {
		select {
		case <-changed:
		case <-time.After(500 * time.Millisecond):
			return
		}
	}
}

func TestWatcher_FiresAfterWrite(t *testing.T) {
	root := t.TempDir()
	changed := startTestWatcher(t, root)

	writeUntilFire(t, changed, filepath.Join(root, "CLAUDE.md"))
}

func TestWatcher_CoversDirectoriesCreatedLater(t *testing.T) {
	root := t.TempDir()
	changed := startTestWatcher(t, root)

	// First cycle: the directory creation itself triggers a change, after
	// which the new directory gets its own watch.
	newDirpath := filepath.Join(root, "agents")
	if err := os.Mkdir(newDirpath, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	writeUntilFire(t, changed, filepath.Join(root, "touch.txt"))
	drainUntilSettled(t, changed)

	// Second cycle: writes inside the new directory must now be seen.
	writeUntilFire(t, changed, filepath.Join(newDirpath, "reviewer.md"))
}

func TestWatcher_ToleratesMissingRoot(t *testing.T) {
	missingRoot := filepath.Join(t.TempDir(), "does-not-exist")
	changed := startTestWatcher(t, missingRoot)

	select {
	case <-changed:
		t.Error("expected no change events for a missing root")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestIsPathUnder(t *testing.T) {
	tests := []struct {
		child    string
		parent   string
		expected bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/a", "/a/b", false},
		{"/other", "/a/b", false},
	}
	for _, tc := range tests {
		if got := isPathUnder(tc.child, tc.parent); got != tc.expected {
			t.Errorf("isPathUnder(%q, %q): expected %v, got %v", tc.child, tc.parent, tc.expected, got)
		}
	}
}
