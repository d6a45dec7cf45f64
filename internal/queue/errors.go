package queue

import "errors"

var (
	// ErrDuplicateTask is returned by Append when a live task already
	// represents the same (path, fingerprint) pair. Callers treat it as
	// "already known", not as a failure.
	ErrDuplicateTask = errors.New("duplicate task")

	// ErrCorruptStore is returned when the store file exists but cannot be
	// parsed. The store never attempts self-repair; operators must inspect
	// the file by hand.
	ErrCorruptStore = errors.New("task store corrupt")

	// ErrInvalidTransition is returned by Update when the requested status
	// change is not permitted by the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTaskNotFound is returned by Update when no stored task matches the
	// given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrQueueActive is returned by Rotate when a queued or processing task
	// still exists at the moment the lock is held.
	ErrQueueActive = errors.New("queue has active tasks")

	// ErrLockTimeout is returned when the store lock cannot be acquired
	// within the configured bound. Loops treat it as fatal.
	ErrLockTimeout = errors.New("task store lock timeout")
)
