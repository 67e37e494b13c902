package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kurtosis-tech/stacktrace"
)

// defaultDebounce is the delay after the last filesystem event before the
// callback fires. This batches rapid changes, such as an editor writing
// multiple files in quick succession.
const defaultDebounce = 500 * time.Millisecond

// Watcher recursively watches a set of directory roots and invokes OnChange
// after each debounced burst of filesystem events under them.
type Watcher struct {
	Roots    []string
	Debounce time.Duration // zero means the default
	OnChange func()
	Logger   *log.Logger
}

// Run blocks until ctx is cancelled, invoking OnChange after each event
// burst settles. Watches are re-added after every trigger so that
// directories created during the burst are covered too.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return stacktrace.Propagate(err, "failed to create filesystem watcher")
	}
	defer fsWatcher.Close()

	w.addWatches(fsWatcher)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.isUnderRoots(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				w.OnChange()
				w.addWatches(fsWatcher)
			})

		case watchErr, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Watcher: fsnotify error: %v", watchErr)
		}
	}
}

// addWatches walks every root and watches each directory found. Errors are
// ignored: a root may not exist yet and a directory may already be watched.
func (w *Watcher) addWatches(fsWatcher *fsnotify.Watcher) {
	for _, root := range w.Roots {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			continue
		}
		filepath.Walk(resolved, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				fsWatcher.Add(path)
			}
			return nil
		})
	}
}

// isUnderRoots reports whether the event path falls under any watched root.
func (w *Watcher) isUnderRoots(eventPath string) bool {
	for _, root := range w.Roots {
		if isPathUnder(eventPath, root) {
			return true
		}
		if resolved, err := filepath.EvalSymlinks(root); err == nil && isPathUnder(eventPath, resolved) {
			return true
		}
	}
	return false
}

// isPathUnder returns true if child is under or equal to parent.
func isPathUnder(child string, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && (len(rel) < 3 || rel[:3] != "../")
}
