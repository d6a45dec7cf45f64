// Package services holds error classification shared by external tool
// wrappers and the worker loop.
package services

import (
	"errors"
	"fmt"
	"strings"

	"shrink/internal/queue"
)

var (
	// ErrExternalTool marks a failure reported by an external process
	// such as ffmpeg. Maps to StatusFailed.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks a missing input. Maps to StatusErrorMissingInput.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks an unusable task attribute such as an
	// unknown resolution. Maps to StatusErrorNoResolution.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later status classification.
func Wrap(marker error, component, operation, detail string, err error) error {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, detail} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	context := strings.Join(parts, ": ")
	if context == "" {
		context = "service failure"
	}
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, context, err)
	}
	return fmt.Errorf("%w: %s", marker, context)
}

// FailureStatus maps a worker error to the terminal queue status that
// should be persisted. Unclassified errors indicate an orchestration fault
// rather than a transcode failure.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrNotFound):
		return queue.StatusErrorMissingInput
	case errors.Is(err, ErrConfiguration):
		return queue.StatusErrorNoResolution
	case errors.Is(err, ErrExternalTool):
		return queue.StatusFailed
	default:
		return queue.StatusErrorException
	}
}
