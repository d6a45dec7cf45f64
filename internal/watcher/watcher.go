// Package watcher discovers candidate video files dropped into the input
// tree and enqueues them once their contents have settled.
//
// Discovery is event driven via fsnotify, but enqueueing never is: every
// candidate goes through the pending set and must hold the same size and
// modification time across two consecutive stability passes before it is
// fingerprinted. Files still being copied in grow between passes and stay
// pending.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"shrink/internal/config"
	"shrink/internal/fingerprint"
	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/queue"
)

// observation records what a stability pass saw for a pending candidate.
type observation struct {
	size    int64
	modTime time.Time
	stable  int
}

// stablePasses is how many consecutive unchanged observations a candidate
// needs before it is enqueued. The first pass records, the second confirms.
const stablePasses = 2

// Watcher turns filesystem activity under the input directory into queued
// tasks.
type Watcher struct {
	cfg      *config.Config
	store    *queue.Store
	notifier notifications.Service
	logger   *slog.Logger

	roots      map[string]struct{}
	extensions map[string]struct{}

	pending map[string]*observation
}

// New creates a watcher bound to the given store and notifier.
func New(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:        cfg,
		store:      store,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "watcher"),
		roots:      cfg.ResolutionRootSet(),
		extensions: cfg.ExtensionSet(),
		pending:    make(map[string]*observation),
	}
}

// Run watches the input tree until ctx is cancelled. Files already present
// at startup are picked up by the initial scan and go through the same
// stability gate as live events.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.watchTree(fsw, w.cfg.Paths.InputDir); err != nil {
		return err
	}
	w.scanExisting()

	interval := time.Duration(w.cfg.Watch.ScanInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("watching input directory",
		logging.String(logging.FieldPath, w.cfg.Paths.InputDir),
		logging.Duration("scan_interval", interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			w.handleEvent(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// watchTree registers dir and every subdirectory with the fsnotify watcher.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %q: %w", path, err)
		}
		return nil
	})
}

// scanExisting seeds the pending set with candidates that were already on
// disk before the watcher started.
func (w *Watcher) scanExisting() {
	w.scanTree(w.cfg.Paths.InputDir)
}

// scanTree tracks every candidate under dir.
func (w *Watcher) scanTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && w.isCandidate(path) {
			w.track(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("scan incomplete", logging.String(logging.FieldPath, dir), logging.Error(err))
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New resolution subfolders or nested directories also need
			// watching, and a moved-in directory may already contain files.
			if err := w.watchTree(fsw, event.Name); err != nil {
				w.logger.Warn("watch new directory", logging.String(logging.FieldPath, event.Name), logging.Error(err))
			}
			w.scanTree(event.Name)
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && w.isCandidate(event.Name) {
		w.track(event.Name)
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		delete(w.pending, event.Name)
	}
}

// isCandidate reports whether path looks like a video file worth tracking.
// Hidden files are skipped since copy tools often stage uploads under
// dot-prefixed names.
func (w *Watcher) isCandidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

// track records or refreshes the candidate's observation. A size or mtime
// change restarts the stability count.
func (w *Watcher) track(path string) {
	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}
	obs, ok := w.pending[path]
	if !ok {
		w.pending[path] = &observation{size: info.Size(), modTime: info.ModTime(), stable: 1}
		w.logger.Debug("tracking candidate", logging.String(logging.FieldPath, path))
		return
	}
	if obs.size != info.Size() || !obs.modTime.Equal(info.ModTime()) {
		obs.size = info.Size()
		obs.modTime = info.ModTime()
		obs.stable = 1
	}
}

// sweep re-observes every pending candidate and enqueues those that held
// still since the previous pass.
func (w *Watcher) sweep(ctx context.Context) {
	for path, obs := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if obs.size != info.Size() || !obs.modTime.Equal(info.ModTime()) {
			obs.size = info.Size()
			obs.modTime = info.ModTime()
			obs.stable = 1
			continue
		}
		obs.stable++
		if obs.stable < stablePasses {
			continue
		}
		if !fileutil.CanOpen(path) {
			// Still held exclusively by whatever is writing it.
			continue
		}
		delete(w.pending, path)
		w.ingest(ctx, path, info.Size())
	}
}

// ingest fingerprints a stable candidate and appends it to the queue.
func (w *Watcher) ingest(ctx context.Context, path string, size int64) {
	rel, err := filepath.Rel(w.cfg.Paths.InputDir, path)
	if err != nil {
		w.logger.Warn("resolve relative path", logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}

	resolution, ok := w.resolutionFor(rel)
	if !ok {
		w.logger.Warn("no resolution folder for file",
			logging.String(logging.FieldPath, rel))
		w.publish(ctx, notifications.EventCandidateSkipped, notifications.Payload{
			"path":   rel,
			"reason": "outside resolution folders",
		})
		return
	}

	fp, err := fingerprint.Compute(path)
	if err != nil {
		w.logger.Warn("fingerprint failed", logging.String(logging.FieldPath, rel), logging.Error(err))
		return
	}

	task := &queue.Task{
		Path:        rel,
		Fingerprint: fp,
		Resolution:  resolution,
		SizeBefore:  size,
	}
	if err := w.store.Append(ctx, task); err != nil {
		if errors.Is(err, queue.ErrDuplicateTask) {
			w.logger.Debug("duplicate file ignored",
				logging.String(logging.FieldPath, rel),
				logging.String("fingerprint", fp))
			return
		}
		w.logger.Error("enqueue failed", logging.String(logging.FieldPath, rel), logging.Error(err))
		return
	}

	w.logger.Info("task queued",
		logging.String(logging.FieldTaskID, task.ID.String()),
		logging.String(logging.FieldPath, rel),
		logging.String(logging.FieldResolution, resolution),
		logging.Int64("size_bytes", size))
	w.publish(ctx, notifications.EventTaskQueued, notifications.Payload{
		"path":       rel,
		"resolution": resolution,
	})
}

// resolutionFor maps an input-relative path to its target resolution via
// the first path element.
func (w *Watcher) resolutionFor(rel string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", false
	}
	if _, ok := w.roots[parts[0]]; !ok {
		return "", false
	}
	return parts[0], true
}

func (w *Watcher) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := w.notifier.Publish(ctx, event, payload); err != nil {
		w.logger.Warn("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
