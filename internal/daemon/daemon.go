// Package daemon wires the watcher, worker, and rotation loops into one
// supervised process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"shrink/internal/config"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/queue"
	"shrink/internal/rotation"
	"shrink/internal/services/ffmpeg"
	"shrink/internal/watcher"
	"shrink/internal/worker"
)

const instanceLockName = "shrinkd.lock"

// loop is one long-running component under daemon supervision.
type loop struct {
	name string
	run  func(context.Context) error
}

// Daemon owns the process-wide instance lock and the component goroutines.
// A fatal error in any loop shuts the whole daemon down; the queue store on
// disk is the only state that survives.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	instanceLock *flock.Flock
	loops        []loop

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	started bool
}

// New assembles a daemon from its components.
func New(cfg *config.Config, store *queue.Store, client ffmpeg.Client, notifier notifications.Service, logger *slog.Logger) *Daemon {
	componentLogger := logging.NewComponentLogger(logger, "daemon")

	return &Daemon{
		cfg:          cfg,
		logger:       componentLogger,
		instanceLock: flock.New(filepath.Join(cfg.Paths.LogDir, instanceLockName)),
		loops: []loop{
			{name: "watcher", run: watcher.New(cfg, store, notifier, logger).Run},
			{name: "worker", run: worker.New(cfg, store, client, notifier, logger).Run},
			{name: "rotation", run: rotation.New(cfg, store, notifier, logger).Run},
		},
	}
}

// Start acquires the single-instance lock and launches the component loops.
// It returns immediately; use Wait to block until the daemon stops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("daemon already started")
	}

	locked, err := d.instanceLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance holds %s", d.instanceLock.Path())
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.started = true

	var wg sync.WaitGroup
	var once sync.Once
	for _, l := range d.loops {
		wg.Add(1)
		go func(l loop) {
			defer wg.Done()
			d.logger.Info("loop started", logging.String("loop", l.name))
			err := l.run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("loop failed", logging.String("loop", l.name), logging.Error(err))
				once.Do(func() {
					d.mu.Lock()
					d.runErr = fmt.Errorf("%s: %w", l.name, err)
					d.mu.Unlock()
				})
				// One failed loop takes the daemon down rather than
				// limping along without it.
				cancel()
				return
			}
			d.logger.Info("loop stopped", logging.String("loop", l.name))
		}(l)
	}

	go func() {
		wg.Wait()
		if err := d.instanceLock.Unlock(); err != nil {
			d.logger.Warn("release instance lock", logging.Error(err))
		}
		close(d.done)
	}()

	d.logger.Info("daemon started",
		logging.String("input_dir", d.cfg.Paths.InputDir),
		logging.String("output_dir", d.cfg.Paths.OutputDir))
	return nil
}

// Wait blocks until every loop has exited and returns the first fatal loop
// error, if any.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return errors.New("daemon not started")
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Stop requests shutdown and waits for the loops to drain.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return d.Wait()
}
