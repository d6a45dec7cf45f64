// Package worker drains the task queue one task at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"shrink/internal/config"
	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/queue"
	"shrink/internal/services"
	"shrink/internal/services/ffmpeg"
)

// Worker claims queued tasks and runs them through the transcoder. There is
// exactly one worker per daemon; the claim in the store is what makes that
// safe even if a second daemon is started by mistake.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	client   ffmpeg.Client
	notifier notifications.Service
	logger   *slog.Logger
}

// New creates a worker bound to the given store and transcode client.
func New(cfg *config.Config, store *queue.Store, client ffmpeg.Client, notifier notifications.Service, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    store,
		client:   client,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "worker"),
	}
}

// Run polls the queue until ctx is cancelled. Store lock timeouts and a
// corrupt store are fatal; transient claim errors back off and retry.
func (w *Worker) Run(ctx context.Context) error {
	pollInterval := time.Duration(w.cfg.Worker.PollInterval) * time.Second
	retryInterval := time.Duration(w.cfg.Worker.ErrorRetryInterval) * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := w.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrLockTimeout) || errors.Is(err, queue.ErrCorruptStore) {
				return fmt.Errorf("claim next task: %w", err)
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.Error("claim failed, retrying", logging.Error(err))
			if err := sleep(ctx, retryInterval); err != nil {
				return err
			}
			continue
		}
		if task == nil {
			if err := sleep(ctx, pollInterval); err != nil {
				return err
			}
			continue
		}

		w.process(ctx, task)
	}
}

// process runs one claimed task to a terminal status. The transcode itself
// runs without the store lock held; only the final outcome write takes it.
// Shutdown is cooperative: a cancelled run context stops Run between tasks,
// but a claimed task always finishes and has its outcome persisted.
func (w *Worker) process(runCtx context.Context, task *queue.Task) {
	ctx := context.WithoutCancel(runCtx)

	w.logger.Info("processing task",
		logging.String(logging.FieldTaskID, task.ID.String()),
		logging.String(logging.FieldPath, task.Path),
		logging.String(logging.FieldResolution, task.Resolution))
	w.publish(ctx, notifications.EventTaskStarted, notifications.Payload{
		"path":       task.Path,
		"resolution": task.Resolution,
	})

	result, err := w.transcode(ctx, task)

	now := time.Now().UTC()
	task.FinishedAt = &now
	if err != nil {
		task.Status = services.FailureStatus(err)
		task.ErrorMessage = err.Error()
	} else {
		task.Status = queue.StatusProcessed
		task.SizeAfter = result.OutputSize
	}

	if updateErr := w.store.Update(ctx, task); updateErr != nil {
		w.logger.Error("persist task outcome",
			logging.String(logging.FieldTaskID, task.ID.String()),
			logging.String(logging.FieldStatus, string(task.Status)),
			logging.Error(updateErr))
		return
	}

	if err != nil {
		w.logger.Error("task failed",
			logging.String(logging.FieldTaskID, task.ID.String()),
			logging.String(logging.FieldPath, task.Path),
			logging.String(logging.FieldStatus, string(task.Status)),
			logging.Error(err))
		w.publish(ctx, notifications.EventTaskFailed, notifications.Payload{
			"path":   task.Path,
			"reason": err.Error(),
		})
		return
	}

	w.logger.Info("task finished",
		logging.String(logging.FieldTaskID, task.ID.String()),
		logging.String(logging.FieldPath, task.Path),
		logging.Int64("size_before", task.SizeBefore),
		logging.Int64("size_after", task.SizeAfter),
		logging.Float64("duration_seconds", durationFor(task, now)))
	w.publish(ctx, notifications.EventTaskCompleted, notifications.Payload{
		"path":       task.Path,
		"resolution": task.Resolution,
	})
}

// transcode validates the task and hands it to ffmpeg.
func (w *Worker) transcode(ctx context.Context, task *queue.Task) (ffmpeg.Result, error) {
	inputPath := filepath.Join(w.cfg.Paths.InputDir, task.Path)
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ffmpeg.Result{}, services.Wrap(services.ErrNotFound, "worker", "input file", task.Path, err)
		}
		return ffmpeg.Result{}, services.Wrap(services.ErrNotFound, "worker", "stat input", task.Path, err)
	}
	// The file may have been replaced between enqueue and claim; record
	// what we actually transcoded.
	task.SizeBefore = fileutil.Size(inputPath)

	height, err := strconv.Atoi(task.Resolution)
	if err != nil || height <= 0 {
		return ffmpeg.Result{}, services.Wrap(services.ErrConfiguration, "worker", "resolution", task.Resolution, err)
	}

	outputPath := filepath.Join(w.cfg.Paths.OutputDir, task.Path)

	lastDecile := -1
	progress := func(update ffmpeg.ProgressUpdate) {
		decile := int(update.Percent) / 10
		if decile <= lastDecile {
			return
		}
		lastDecile = decile
		w.logger.Debug("transcode progress",
			logging.String(logging.FieldTaskID, task.ID.String()),
			logging.Float64("percent", update.Percent))
	}

	return w.client.Transcode(ctx, inputPath, outputPath, height, progress)
}

func durationFor(task *queue.Task, finished time.Time) float64 {
	if task.StartedAt == nil {
		return 0
	}
	return finished.Sub(*task.StartedAt).Seconds()
}

func (w *Worker) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := w.notifier.Publish(ctx, event, payload); err != nil {
		w.logger.Warn("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
