package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shrink/internal/config"
)

const userAgent = "shrink/0.1.0"

// Event identifies a notification kind. Individual kinds can be suppressed
// through configuration.
type Event string

const (
	EventTaskQueued        Event = "task_queued"
	EventTaskStarted       Event = "task_started"
	EventTaskCompleted     Event = "task_completed"
	EventTaskFailed        Event = "task_failed"
	EventCandidateSkipped  Event = "candidate_skipped"
	EventRotationCompleted Event = "rotation_completed"
	EventTest              Event = "test"
)

// Payload carries the fields referenced by an event's message template.
type Payload map[string]string

// Service defines the notification surface exposed to the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTaskQueued:        cfg.Notifications.Queued,
			EventTaskStarted:       cfg.Notifications.Started,
			EventTaskCompleted:     cfg.Notifications.Completed,
			EventTaskFailed:        cfg.Notifications.Errors,
			EventCandidateSkipped:  cfg.Notifications.Errors,
			EventRotationCompleted: cfg.Notifications.Rotation,
			EventTest:              true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if enabled, known := n.enabled[event]; known && !enabled {
		return nil
	}
	msg, ok := formatMessage(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func formatMessage(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventTaskQueued:
		return message{
			title: "Shrink - Queued",
			body:  fmt.Sprintf("📝 New file queued: %s (%sp)", get("path"), get("resolution")),
			tags:  []string{"shrink", "queue", "queued"},
		}, true
	case EventTaskStarted:
		return message{
			title: "Shrink - Processing",
			body:  fmt.Sprintf("🔵 Processing started: %s (%sp)", get("path"), get("resolution")),
			tags:  []string{"shrink", "task", "started"},
		}, true
	case EventTaskCompleted:
		return message{
			title: "Shrink - Finished",
			body:  fmt.Sprintf("🟢 Finished: %s (%sp)", get("path"), get("resolution")),
			tags:  []string{"shrink", "task", "completed"},
		}, true
	case EventTaskFailed:
		body := fmt.Sprintf("🔴 Failed: %s", get("path"))
		if reason := get("reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title:    "Shrink - Failed",
			body:     body,
			tags:     []string{"shrink", "task", "failed"},
			priority: "high",
		}, true
	case EventCandidateSkipped:
		return message{
			title: "Shrink - Skipped",
			body:  fmt.Sprintf("⚠️ File skipped (%s): %s", get("reason"), get("path")),
			tags:  []string{"shrink", "watcher", "skipped"},
		}, true
	case EventRotationCompleted:
		return message{
			title: "Shrink - Rotation",
			body: fmt.Sprintf("📦 Task rotation complete: %s processed, %s failed/errored archived",
				get("processed"), get("errored")),
			tags: []string{"shrink", "rotation", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "Shrink - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"shrink", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
