// Package watch re-runs checks when documents change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the event bursts editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher observes a set of directories and invokes a callback with the batch
// of changed, matching paths after a debounce window.
//
// fsnotify watches are not recursive: each directory holding documents must
// be listed explicitly. Subdirectories created while watching are not picked
// up.
type Watcher struct {
	// Dirs are the directories to observe.
	Dirs []string

	// Match filters event paths; only matching paths are batched.
	Match func(path string) bool

	// OnChange receives each debounced batch, sorted and deduplicated.
	// An error stops the loop.
	OnChange func(ctx context.Context, paths []string) error

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	Logger zerolog.Logger
}

// Run watches until ctx is canceled or OnChange fails.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Match == nil || w.OnChange == nil {
		return fmt.Errorf("watcher requires Match and OnChange")
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if len(w.Dirs) == 0 {
		return fmt.Errorf("watcher requires at least one directory")
	}
	for _, dir := range w.Dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.Logger.Info().Strs("dirs", w.Dirs).Msg("watching for changes")

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isRelevant(ev) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if !w.Match(path) {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn().Err(err).Msg("watch error")

		case <-fire:
			fire = nil
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})

			if err := w.OnChange(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// isRelevant filters to events that change document content. Chmod-only
// events are noise.
func isRelevant(ev fsnotify.Event) bool {
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}
