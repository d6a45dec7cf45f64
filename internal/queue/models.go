package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"

	// Terminal error states the worker assigns when a task cannot be run.
	StatusErrorMissingInput Status = "error_missing_input"
	StatusErrorNoResolution Status = "error_no_resolution"
	StatusErrorException    Status = "error_exception"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
	StatusErrorMissingInput,
	StatusErrorNoResolution,
	StatusErrorException,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the closed state machine applied by Store mutations.
// Claiming moves queued to processing; the worker moves processing to
// exactly one terminal state. Nothing leaves a terminal state.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed, StatusErrorMissingInput, StatusErrorNoResolution, StatusErrorException},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status Status) bool {
	_, known := statusSet[status]
	return known && len(transitions[status]) == 0
}

// IsErrorStatus reports whether a status is a terminal failure of any kind.
func IsErrorStatus(status Status) bool {
	switch status {
	case StatusFailed, StatusErrorMissingInput, StatusErrorNoResolution, StatusErrorException:
		return true
	default:
		return false
	}
}

// Task is the unit of work and of history. Path is relative to the input
// root and doubles as the output mirror location. Path and Fingerprint
// together identify the file content a task represents.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	Path            string     `json:"path"`
	Fingerprint     string     `json:"fingerprint"`
	Resolution      string     `json:"resolution"`
	Status          Status     `json:"status"`
	AddedAt         time.Time  `json:"added_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	SizeBefore      int64      `json:"size_before"`
	SizeAfter       int64      `json:"size_after,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	ErrorMessage    string     `json:"error,omitempty"`
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	return IsTerminal(t.Status)
}

// IsActive reports whether the task is queued or in flight.
func (t *Task) IsActive() bool {
	return t.Status == StatusQueued || t.Status == StatusProcessing
}

// Clone returns a deep copy so callers can mutate tasks outside the lock.
func (t *Task) Clone() *Task {
	cp := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		cp.FinishedAt = &finished
	}
	return &cp
}

// HealthSummary aggregates task counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Processed  int
	Failed     int
	Errored    int
}

// Active reports the number of tasks that are queued or in flight.
func (h HealthSummary) Active() int {
	return h.Queued + h.Processing
}
