package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shrink/internal/notifications"
	"shrink/internal/queue"
	"shrink/internal/testsupport"
)

func newTestWatcher(t *testing.T) (*Watcher, *queue.Store, *testsupport.RecordingNotifier) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &testsupport.RecordingNotifier{}
	return New(cfg, store, notifier, nil), store, notifier
}

func TestIsCandidate(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	cases := []struct {
		path string
		want bool
	}{
		{"720/movie.mp4", true},
		{"720/Movie.MKV", true},
		{"720/notes.txt", false},
		{"720/.partial-upload.mp4", false},
		{"720/archive.tar", false},
	}
	for _, tc := range cases {
		if got := w.isCandidate(tc.path); got != tc.want {
			t.Errorf("isCandidate(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestResolutionFor(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	if res, ok := w.resolutionFor(filepath.Join("720", "movie.mp4")); !ok || res != "720" {
		t.Errorf("resolutionFor(720/movie.mp4) = %q, %v", res, ok)
	}
	if res, ok := w.resolutionFor(filepath.Join("1080", "nested", "show.mkv")); !ok || res != "1080" {
		t.Errorf("resolutionFor(1080/nested/show.mkv) = %q, %v", res, ok)
	}
	if _, ok := w.resolutionFor("movie.mp4"); ok {
		t.Error("top-level file must not resolve")
	}
	if _, ok := w.resolutionFor(filepath.Join("4k", "movie.mp4")); ok {
		t.Error("unknown folder must not resolve")
	}
}

func TestSweepEnqueuesStableFile(t *testing.T) {
	w, store, notifier := newTestWatcher(t)
	ctx := context.Background()

	path := testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "720"), "movie.mp4", 4096)
	w.track(path)
	w.sweep(ctx)

	tasks, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	task := tasks[0]
	if task.Path != filepath.Join("720", "movie.mp4") {
		t.Errorf("path = %s", task.Path)
	}
	if task.Resolution != "720" {
		t.Errorf("resolution = %s", task.Resolution)
	}
	if task.Fingerprint == "" {
		t.Error("fingerprint not computed")
	}
	if task.SizeBefore != 4096 {
		t.Errorf("size = %d", task.SizeBefore)
	}
	if notifier.Count(notifications.EventTaskQueued) != 1 {
		t.Error("expected a queued notification")
	}
	if len(w.pending) != 0 {
		t.Error("candidate not removed from pending set")
	}
}

func TestSweepWaitsForGrowingFile(t *testing.T) {
	w, store, _ := newTestWatcher(t)
	ctx := context.Background()

	dir := filepath.Join(w.cfg.Paths.InputDir, "720")
	path := testsupport.WriteVideo(t, dir, "movie.mp4", 1024)
	w.track(path)

	// Simulate a copy still in flight.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.Write(make([]byte, 1024)); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	w.sweep(ctx)
	tasks, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("growing file was enqueued")
	}

	// Unchanged since the last pass, so the next sweep enqueues it.
	w.sweep(ctx)
	tasks, err = store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks after second sweep, want 1", len(tasks))
	}
	if tasks[0].SizeBefore != 2048 {
		t.Errorf("size = %d, want 2048", tasks[0].SizeBefore)
	}
}

func TestSweepDropsRemovedFile(t *testing.T) {
	w, store, _ := newTestWatcher(t)
	ctx := context.Background()

	path := testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "720"), "movie.mp4", 512)
	w.track(path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	w.sweep(ctx)
	if len(w.pending) != 0 {
		t.Error("removed file still pending")
	}
	tasks, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 0 {
		t.Error("removed file was enqueued")
	}
}

func TestIngestSkipsFileOutsideResolutionFolders(t *testing.T) {
	w, store, notifier := newTestWatcher(t)
	ctx := context.Background()

	path := testsupport.WriteVideo(t, w.cfg.Paths.InputDir, "stray.mp4", 512)
	w.track(path)
	w.sweep(ctx)

	tasks, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("stray file was enqueued")
	}
	if notifier.Count(notifications.EventCandidateSkipped) != 1 {
		t.Error("expected a skipped notification")
	}
}

func TestIngestIgnoresDuplicates(t *testing.T) {
	w, store, notifier := newTestWatcher(t)
	ctx := context.Background()

	path := testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "480"), "movie.mp4", 2048)
	for i := 0; i < 2; i++ {
		w.track(path)
		w.sweep(ctx)
	}

	tasks, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if notifier.Count(notifications.EventTaskQueued) != 1 {
		t.Error("duplicate produced a second queued notification")
	}
}

func TestScanExistingSeedsPending(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "720"), "old.mp4", 256)
	testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "1080"), "older.mkv", 256)
	testsupport.WriteFile(t, filepath.Join(w.cfg.Paths.InputDir, "720", "notes.txt"), []byte("not video"))

	w.scanExisting()
	if len(w.pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(w.pending))
	}
}

func TestScanTreeIsScopedToDirectory(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "720"), "existing.mp4", 256)
	newDir := filepath.Join(w.cfg.Paths.InputDir, "1080", "season-1")
	testsupport.WriteVideo(t, newDir, "episode.mkv", 256)

	w.scanTree(newDir)
	if len(w.pending) != 1 {
		t.Fatalf("pending = %d, want only the new directory's file", len(w.pending))
	}
	if _, ok := w.pending[filepath.Join(newDir, "episode.mkv")]; !ok {
		t.Error("new directory's file not tracked")
	}
}

func TestTrackResetsOnChange(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	path := testsupport.WriteVideo(t, filepath.Join(w.cfg.Paths.InputDir, "720"), "movie.mp4", 100)
	w.track(path)

	obs := w.pending[path]
	if obs == nil || obs.stable != 1 {
		t.Fatalf("unexpected observation %+v", obs)
	}

	// Rewrite with different size and mtime.
	time.Sleep(10 * time.Millisecond)
	testsupport.WriteFile(t, path, make([]byte, 300))
	w.track(path)
	if got := w.pending[path].stable; got != 1 {
		t.Fatalf("stable = %d after change, want 1", got)
	}
}
