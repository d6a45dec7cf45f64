package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func seedTerminalTasks(t *testing.T, store *Store, processed, failed int) {
	t.Helper()
	ctx := context.Background()

	total := processed + failed
	for i := 0; i < total; i++ {
		task := newTask(fmt.Sprintf("720/file-%03d.mp4", i), fmt.Sprintf("fp-%03d", i))
		if err := store.Append(ctx, task); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		claimed, err := store.ClaimNext(ctx)
		if err != nil || claimed == nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if i < processed {
			claimed.Status = StatusProcessed
		} else {
			claimed.Status = StatusFailed
			claimed.ErrorMessage = "encode failed"
		}
		if err := store.Update(ctx, claimed); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
}

func TestRotateArchivesAndTruncates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTerminalTasks(t, store, 80, 21)

	result, err := store.Rotate(ctx)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if result.Processed != 80 || result.Errored != 21 {
		t.Fatalf("result = %d processed, %d errored; want 80, 21", result.Processed, result.Errored)
	}
	if result.SuccessFile == "" || result.ErrorFile == "" {
		t.Fatal("expected both archive files")
	}
	if !strings.Contains(result.ErrorFile, "tasks-err.json.") {
		t.Errorf("error archive named %s", result.ErrorFile)
	}

	for path, want := range map[string]int{result.SuccessFile: 80, result.ErrorFile: 21} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read archive %s: %v", path, err)
		}
		var archived []*Task
		if err := json.Unmarshal(data, &archived); err != nil {
			t.Fatalf("parse archive %s: %v", path, err)
		}
		if len(archived) != want {
			t.Errorf("archive %s holds %d tasks, want %d", path, len(archived), want)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 0 {
		t.Fatalf("live store not truncated: %+v", health)
	}

	// The truncated store must still be a parseable list.
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read live store: %v", err)
	}
	var live []*Task
	if err := json.Unmarshal(data, &live); err != nil {
		t.Fatalf("live store unparseable after rotation: %v", err)
	}
}

func TestRotateRefusesWhenActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTerminalTasks(t, store, 2, 0)
	if err := store.Append(ctx, newTask("720/incoming.mp4", "live")); err != nil {
		t.Fatalf("append: %v", err)
	}

	_, err := store.Rotate(ctx)
	if !errors.Is(err, ErrQueueActive) {
		t.Fatalf("expected ErrQueueActive, got %v", err)
	}

	// Nothing archived, nothing lost.
	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 3 {
		t.Fatalf("store mutated by refused rotation: %+v", health)
	}
}

func TestRotateEmptyStore(t *testing.T) {
	store := newTestStore(t)

	result, err := store.Rotate(context.Background())
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if result.Total() != 0 || result.SuccessFile != "" || result.ErrorFile != "" {
		t.Fatalf("expected no-op rotation, got %+v", result)
	}
}
