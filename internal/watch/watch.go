// Package watch turns filesystem churn into rebuild signals. A recursive
// fsnotify watcher feeds a debouncer: a burst of saves produces one
// notification after a quiet window, and a burst that never goes quiet
// is capped by a maximum delay so rebuilds still happen while writing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches directory trees and emits coalesced change
// notifications on Events.
type Watcher struct {
	fsw    *fsnotify.Watcher
	deb    *debouncer
	events chan struct{}
}

// New creates a watcher over the given roots. Roots that do not exist
// are skipped (a site may have no layouts directory); at least one must
// be watchable.
func New(roots []string, quiet, maxDelay time.Duration) (*Watcher, error) {
	if quiet <= 0 {
		quiet = 400 * time.Millisecond
	}
	if maxDelay < quiet {
		maxDelay = quiet
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan struct{}, 1),
	}
	w.deb = &debouncer{quiet: quiet, maxDelay: maxDelay, fire: w.notify}

	watched := 0
	for _, root := range roots {
		fi, err := os.Stat(root)
		if err != nil || !fi.IsDir() {
			slog.Debug("Skipping missing watch root", "dir", root)
			continue
		}
		w.addRecursive(root)
		watched++
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, errors.New("no watchable directories")
	}

	return w, nil
}

// Events returns the notification channel. It holds at most one pending
// notification; bursts coalesce.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Run processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.deb.stop()
	return w.fsw.Close()
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ignored(ev.Name) {
		return
	}

	// Directories created inside a watched tree need their own watches.
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addRecursive(ev.Name)
		}
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	slog.Debug("File change", "path", ev.Name, "op", ev.Op.String())
	w.deb.touch()
}

func (w *Watcher) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("Watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// ignored reports whether a path is editor or OS noise that should not
// trigger rebuilds.
func ignored(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") {
		return true
	}
	if strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

// debouncer fires once per burst: each touch restarts the quiet window,
// and the first touch of a burst starts the max-delay cap.
type debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	fire     func()

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
}

func (d *debouncer) touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if d.deadline.IsZero() {
		d.deadline = now.Add(d.maxDelay)
	}

	delay := d.quiet
	if remaining := d.deadline.Sub(now); remaining < delay {
		delay = max(remaining, 0)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		d.deadline = time.Time{}
		d.mu.Unlock()
		d.fire()
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
