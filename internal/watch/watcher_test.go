package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func matchExt(ext string) func(string) bool {
	return func(path string) bool { return filepath.Ext(path) == ext }
}

// startWatcher runs w in the background and returns a channel carrying the
// final error from Run.
func startWatcher(ctx context.Context, w *Watcher) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give Run a moment to register the fsnotify watch before the test
	// starts writing files.
	time.Sleep(50 * time.Millisecond)
	return done
}

func TestWatcher_BatchesMatchingChanges(t *testing.T) {
	dir := t.TempDir()
	batches := make(chan []string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Watcher{
		Dirs:     []string{dir},
		Match:    matchExt(".md"),
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, paths []string) error {
			batches <- paths
			return nil
		},
	}
	done := startWatcher(ctx, w)

	// Two matching documents and one ignored file inside one burst.
	for _, name := range []string{"b.md", "a.md", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	select {
	case got := <-batches:
		want := []string{filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md")}
		if len(got) != len(want) {
			t.Fatalf("batch = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("batch[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestWatcher_OnChangeErrorStopsTheLoop(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Watcher{
		Dirs:     []string{dir},
		Match:    matchExt(".md"),
		Debounce: 50 * time.Millisecond,
		OnChange: func(context.Context, []string) error { return boom },
	}
	done := startWatcher(ctx, w)

	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Run returned %v, want the callback error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on callback error")
	}
}

func TestWatcher_SeesChangesInEveryWatchedDir(t *testing.T) {
	top := t.TempDir()
	sub := filepath.Join(top, "docs")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	batches := make(chan []string, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Watcher{
		Dirs:     []string{top, sub},
		Match:    matchExt(".md"),
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, paths []string) error {
			batches <- paths
			return nil
		},
	}
	startWatcher(ctx, w)

	for _, path := range []string{filepath.Join(top, "a.md"), filepath.Join(sub, "b.md")} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	seen := make(map[string]bool)
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			for _, p := range batch {
				seen[p] = true
			}
		case <-deadline:
			t.Fatalf("saw %v, want changes from both directories", seen)
		}
	}
	if !seen[filepath.Join(sub, "b.md")] {
		t.Errorf("subdirectory change never delivered: %v", seen)
	}
}

func TestWatcher_RequiresMatchAndOnChange(t *testing.T) {
	w := &Watcher{Dirs: []string{t.TempDir()}}
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected an error for a watcher without Match and OnChange")
	}
}

func TestIsRelevant(t *testing.T) {
	cases := []struct {
		op   fsnotify.Op
		want bool
	}{
		{fsnotify.Write, true},
		{fsnotify.Create, true},
		{fsnotify.Rename, true},
		{fsnotify.Chmod, false},
		{fsnotify.Remove, false},
	}
	for _, tc := range cases {
		if got := isRelevant(fsnotify.Event{Name: "doc.md", Op: tc.op}); got != tc.want {
			t.Errorf("isRelevant(%v) = %v, want %v", tc.op, got, tc.want)
		}
	}
}
