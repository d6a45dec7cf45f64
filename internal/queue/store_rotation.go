package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"
)

const archiveTimestampLayout = "20060102-150405"

// RotationResult describes one completed rotation.
type RotationResult struct {
	Processed   int
	Errored     int
	SuccessFile string
	ErrorFile   string
	RotatedAt   time.Time
}

// Total returns the number of archived tasks.
func (r *RotationResult) Total() int {
	return r.Processed + r.Errored
}

// Rotate archives every terminal task and truncates the live store. The
// whole read-partition-archive-truncate sequence runs under one lock hold
// so a concurrent append or claim cannot be lost. Rotation refuses with
// ErrQueueActive when any task is still queued or processing; the caller
// is responsible for threshold and debounce policy.
func (s *Store) Rotate(ctx context.Context) (*RotationResult, error) {
	result := &RotationResult{RotatedAt: time.Now().UTC()}

	err := s.withLock(ctx, func(tasks []*Task) ([]*Task, bool, error) {
		if len(tasks) == 0 {
			return nil, false, nil
		}

		var processed, errored []*Task
		for _, task := range tasks {
			switch {
			case task.IsActive():
				return nil, false, fmt.Errorf("%w: %s is %s", ErrQueueActive, task.Path, task.Status)
			case task.Status == StatusProcessed:
				processed = append(processed, task)
			default:
				errored = append(errored, task)
			}
		}

		stamp := result.RotatedAt.Format(archiveTimestampLayout)
		if len(processed) > 0 {
			path := s.path + "." + stamp
			if err := writeArchive(path, processed); err != nil {
				return nil, false, err
			}
			result.SuccessFile = path
			result.Processed = len(processed)
		}
		if len(errored) > 0 {
			path := fmt.Sprintf("%s-err.json.%s", trimJSONSuffix(s.path), stamp)
			if err := writeArchive(path, errored); err != nil {
				return nil, false, err
			}
			result.ErrorFile = path
			result.Errored = len(errored)
		}

		return []*Task{}, true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeArchive persists an immutable archive file with the same atomic
// write discipline as the live store.
func writeArchive(path string, tasks []*Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return nil
}

func trimJSONSuffix(path string) string {
	const suffix = ".json"
	if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return path
}
