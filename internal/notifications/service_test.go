package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"shrink/internal/config"
)

type capturedRequest struct {
	body     string
	title    string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []capturedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			body:     string(body),
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]capturedRequest, len(requests))
		copy(out, requests)
		return out
	}
}

func serviceFor(t *testing.T, topic string) Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return NewService(&cfg)
}

func TestNoopWhenUnconfigured(t *testing.T) {
	svc := serviceFor(t, "")
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.Publish(context.Background(), EventTaskQueued, nil); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}

func TestPublishSendsHeaders(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := serviceFor(t, server.URL)

	err := svc.Publish(context.Background(), EventTaskFailed, Payload{
		"path":   "720/movie.mp4",
		"reason": "encoder exploded",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	requests := captured()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(requests))
	}
	req := requests[0]
	if req.title != "Shrink - Failed" {
		t.Errorf("title = %q", req.title)
	}
	if req.priority != "high" {
		t.Errorf("priority = %q, want high", req.priority)
	}
	if !strings.Contains(req.body, "720/movie.mp4") || !strings.Contains(req.body, "encoder exploded") {
		t.Errorf("body = %q", req.body)
	}
	if !strings.Contains(req.tags, "failed") {
		t.Errorf("tags = %q", req.tags)
	}
}

func TestPublishRespectsToggles(t *testing.T) {
	server, captured := newCaptureServer(t)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Queued = false
	svc := NewService(&cfg)

	if err := svc.Publish(context.Background(), EventTaskQueued, Payload{"path": "x"}); err != nil {
		t.Fatalf("suppressed publish: %v", err)
	}
	if err := svc.Publish(context.Background(), EventTaskCompleted, Payload{"path": "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	requests := captured()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want only the completed event", len(requests))
	}
	if requests[0].title != "Shrink - Finished" {
		t.Errorf("title = %q", requests[0].title)
	}
}

func TestPublishReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	svc := serviceFor(t, server.URL)
	err := svc.Publish(context.Background(), EventTest, nil)
	if err == nil {
		t.Fatal("expected error from 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestPublishUnknownEvent(t *testing.T) {
	server, _ := newCaptureServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.Publish(context.Background(), Event("mystery"), nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
}
