package testsupport

import (
	"context"
	"sync"

	"shrink/internal/notifications"
)

// RecordedNotification is one Publish call seen by a RecordingNotifier.
type RecordedNotification struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// RecordingNotifier captures published notifications for assertions.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []RecordedNotification
	Err    error
}

func (r *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedNotification{Event: event, Payload: payload})
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *RecordingNotifier) Events() []RecordedNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedNotification, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many notifications of the given event were published.
func (r *RecordingNotifier) Count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.events {
		if rec.Event == event {
			n++
		}
	}
	return n
}
