// Package watch re-validates addons when their source files change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/odoolint/addon"
)

// relevantExts are the file types whose changes trigger a re-run.
var relevantExts = map[string]bool{
	".py":  true,
	".xml": true,
	".csv": true,
	".po":  true,
	".pot": true,
}

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"static":       true,
	"lib":          true,
}

// Config configures the file watcher.
type Config struct {
	// Roots are the directories to watch, usually addon directories
	// or the directories containing them.
	Roots []string

	// DebounceDelay is how long to wait for more changes before
	// emitting an event.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// Event is one debounced batch of changes, grouped by addon.
type Event struct {
	// Addons are the addon roots with pending changes, sorted.
	Addons []string
	// Paths are the changed files behind the batch.
	Paths []string
}

// Watcher accumulates file system changes and emits one event per
// quiet period, so a save-all in an editor triggers one validation
// run instead of dozens.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	events chan Event
}

// NewWatcher creates a watcher over the given roots.
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 300 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]struct{}),
		events:  make(chan Event, 16),
	}, nil
}

// Events returns the channel of debounced change batches.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds the watches and begins processing. It returns once the
// watches are in place; events flow until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.config.Roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("watching for changes",
		"roots", len(w.config.Roots),
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop closes the watcher and the event channel.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	close(w.events)
	return err
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if skippedDirs[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !relevantExts[strings.ToLower(filepath.Ext(path))] {
		// New directories need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("file change detected", "path", path, "op", event.Op.String())
}

func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if skippedDirs[base] || strings.HasPrefix(base, ".") {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

// flushPending groups the accumulated paths by addon root and emits
// one event for the batch. Paths outside any addon are dropped.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	roots := make(map[string]struct{})
	for _, path := range paths {
		if root := addon.FindRoot(path); root != "" {
			roots[root] = struct{}{}
		}
	}
	if len(roots) == 0 {
		return
	}

	event := Event{Paths: paths}
	for root := range roots {
		event.Addons = append(event.Addons, root)
	}
	sort.Strings(event.Addons)
	sort.Strings(event.Paths)

	select {
	case w.events <- event:
		w.logger.Debug("change batch emitted", "addons", len(event.Addons), "files", len(event.Paths))
	default:
		w.logger.Warn("event channel full, dropping batch", "files", len(event.Paths))
	}
}
