// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"shrink/internal/config"
)

// NewConfig returns a validated configuration rooted in a temp directory,
// with intervals tuned short so tests never wait on production timing.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(root, "input")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Paths.ConfDir = filepath.Join(root, "conf")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Watch.ScanInterval = 1
	cfg.Worker.PollInterval = 1
	cfg.Worker.ErrorRetryInterval = 1
	cfg.Rotation.CheckInterval = 1
	cfg.Queue.LockTimeout = 5

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
