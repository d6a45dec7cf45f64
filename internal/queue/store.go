package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"shrink/internal/config"
)

const (
	tasksFileName = "tasks.json"
	lockFileName  = "tasks.lock"

	lockRetryDelay = 50 * time.Millisecond
)

// Store manages task persistence backed by a JSON file plus a lock file.
// All mutations run under two locks: an in-process mutex serializing the
// daemon's own goroutines, and the file lock excluding other processes.
// flock acquisitions on one instance are reentrant within a process, so the
// file lock alone cannot order the watcher, worker, and rotation loops.
// The file itself is only ever replaced atomically.
type Store struct {
	path        string
	mu          sync.Mutex
	lock        *flock.Flock
	lockTimeout time.Duration
}

// Open prepares the task store inside the configuration directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.ConfDir, lockFileName)
	return &Store{
		path:        filepath.Join(cfg.Paths.ConfDir, tasksFileName),
		lock:        flock.New(lockPath),
		lockTimeout: time.Duration(cfg.Queue.LockTimeout) * time.Second,
	}, nil
}

// Path returns the location of the live store file.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the location of the lock file.
func (s *Store) LockPath() string {
	return s.lock.Path()
}

// withLock acquires the in-process mutex and then the file lock with a
// bounded wait, loads the current list, applies fn, and persists the result
// when fn reports a change. Both locks are released on every exit path.
func (s *Store) withLock(ctx context.Context, fn func(tasks []*Task) ([]*Task, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrLockTimeout, s.lockTimeout)
		}
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %s", ErrLockTimeout, s.lockTimeout)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	tasks, err := s.load()
	if err != nil {
		return err
	}

	updated, dirty, err := fn(tasks)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return s.save(updated)
}

func (s *Store) load() ([]*Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read task store: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var tasks []*Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return tasks, nil
}

// save serializes the full list to a temporary file in the store directory
// and renames it over the original. A crash on either side of the rename
// leaves a complete, parseable file behind.
func (s *Store) save(tasks []*Task) error {
	if tasks == nil {
		tasks = []*Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write task store: %w", err)
	}
	return nil
}

// Append adds a new queued task. It fails with ErrDuplicateTask when a live
// task already carries the same (path, fingerprint) pair, unless that task
// ended in a terminal error; errored history never suppresses a re-drop of
// the same file.
func (s *Store) Append(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	return s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		for _, existing := range tasks {
			if existing.Path == task.Path && existing.Fingerprint == task.Fingerprint && !IsErrorStatus(existing.Status) {
				return nil, false, fmt.Errorf("%w: %s", ErrDuplicateTask, task.Path)
			}
		}

		record := task.Clone()
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Status = StatusQueued
		record.AddedAt = time.Now().UTC()
		record.StartedAt = nil
		record.FinishedAt = nil

		task.ID = record.ID
		task.Status = record.Status
		task.AddedAt = record.AddedAt

		return append(tasks, record), true, nil
	})
}

// ClaimNext returns the oldest queued task after flipping it to processing,
// or nil when nothing is queued. The status change is persisted before the
// lock is released, so no two callers can claim the same task.
func (s *Store) ClaimNext(ctx context.Context) (*Task, error) {
	var claimed *Task
	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		for _, task := range tasks {
			if task.Status != StatusQueued {
				continue
			}
			now := time.Now().UTC()
			task.Status = StatusProcessing
			task.StartedAt = &now
			claimed = task.Clone()
			return tasks, true, nil
		}
		return nil, false, nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update persists the outcome of a claimed task. The stored record must
// exist and the status change must be permitted by the state machine.
func (s *Store) Update(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	return s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		for i, existing := range tasks {
			if existing.ID != task.ID {
				continue
			}
			if existing.Status != task.Status && !CanTransition(existing.Status, task.Status) {
				return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, task.Status)
			}
			record := task.Clone()
			if record.StartedAt != nil && record.FinishedAt != nil {
				record.DurationSeconds = record.FinishedAt.Sub(*record.StartedAt).Seconds()
			}
			tasks[i] = record
			return tasks, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	})
}

// Snapshot returns a copy of all live tasks in insertion order.
func (s *Store) Snapshot(ctx context.Context) ([]*Task, error) {
	var out []*Task
	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		out = make([]*Task, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.Clone())
		}
		return nil, false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Health aggregates task counts for rotation checks and CLI output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var health HealthSummary
	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		for _, task := range tasks {
			health.Total++
			switch task.Status {
			case StatusQueued:
				health.Queued++
			case StatusProcessing:
				health.Processing++
			case StatusProcessed:
				health.Processed++
			case StatusFailed:
				health.Failed++
			default:
				if IsErrorStatus(task.Status) {
					health.Errored++
				}
			}
		}
		return nil, false, nil
	})
	if err != nil {
		return HealthSummary{}, err
	}
	return health, nil
}

// ResetProcessing moves processing tasks back to queued. This is the manual
// recovery path for tasks orphaned by a crash mid-transcode; the daemon
// never does it on its own.
func (s *Store) ResetProcessing(ctx context.Context) (int, error) {
	var reset int
	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		for _, task := range tasks {
			if task.Status != StatusProcessing {
				continue
			}
			task.Status = StatusQueued
			task.StartedAt = nil
			reset++
		}
		return tasks, reset > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return reset, nil
}

// Clear removes tasks matching any of the given statuses, or every task
// when no status is provided.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int, error) {
	match := func(Status) bool { return true }
	if len(statuses) > 0 {
		set := make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			set[status] = struct{}{}
		}
		match = func(status Status) bool {
			_, ok := set[status]
			return ok
		}
	}

	var removed int
	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		kept := tasks[:0]
		for _, task := range tasks {
			if match(task.Status) {
				removed++
				continue
			}
			kept = append(kept, task)
		}
		return kept, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
