package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, found, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
	if resolved != path {
		t.Errorf("resolved path = %s, want %s", resolved, path)
	}
	if cfg.Encoder.Profile != "medium" {
		t.Errorf("profile = %s, want medium default", cfg.Encoder.Profile)
	}
	if cfg.Rotation.Threshold != 100 {
		t.Errorf("rotation threshold = %d, want 100", cfg.Rotation.Threshold)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shrink.toml")
	content := `
[paths]
input_dir = "` + filepath.Join(dir, "in") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
conf_dir = "` + filepath.Join(dir, "conf") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[watch]
resolution_roots = ["480", "2160"]
video_extensions = ["MP4", ".Mkv"]
scan_interval = 3

[encoder]
profile = "slow"

[notifications]
ntfy_topic = "https://ntfy.sh/shrink-test"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, found, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if cfg.Encoder.Profile != "slow" {
		t.Errorf("profile = %s", cfg.Encoder.Profile)
	}
	if got := cfg.Watch.ResolutionRoots; len(got) != 2 || got[1] != "2160" {
		t.Errorf("roots = %v", got)
	}
	for i, want := range []string{".mp4", ".mkv"} {
		if cfg.Watch.VideoExtensions[i] != want {
			t.Errorf("extension %d = %s, want %s", i, cfg.Watch.VideoExtensions[i], want)
		}
	}
	if cfg.Watch.ScanInterval != 3 {
		t.Errorf("scan interval = %d", cfg.Watch.ScanInterval)
	}
	// Unset sections keep their defaults.
	if cfg.Worker.PollInterval != 4 {
		t.Errorf("poll interval = %d, want default 4", cfg.Worker.PollInterval)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"same input and output", func(c *Config) { c.Paths.OutputDir = c.Paths.InputDir }, "must differ"},
		{"empty roots", func(c *Config) { c.Watch.ResolutionRoots = nil }, "resolution_roots"},
		{"nested root", func(c *Config) { c.Watch.ResolutionRoots = []string{"a/b"} }, "bare folder name"},
		{"no extensions", func(c *Config) { c.Watch.VideoExtensions = nil }, "video_extensions"},
		{"unknown profile", func(c *Config) { c.Encoder.Profile = "placebo" }, "encoder.profile"},
		{"zero scan interval", func(c *Config) { c.Watch.ScanInterval = 0 }, "scan_interval"},
		{"zero lock timeout", func(c *Config) { c.Queue.LockTimeout = 0 }, "lock_timeout"},
		{"zero threshold", func(c *Config) { c.Rotation.Threshold = 0 }, "rotation.threshold"},
		{"zero debounce", func(c *Config) { c.Rotation.DebounceTicks = 0 }, "debounce_ticks"},
		{"bare ntfy topic", func(c *Config) { c.Notifications.NtfyTopic = "shrink-alerts" }, "ntfy_topic"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesResolutionRoots(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths.InputDir = filepath.Join(root, "input")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Paths.ConfDir = filepath.Join(root, "conf")
	cfg.Paths.LogDir = filepath.Join(root, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, res := range cfg.Watch.ResolutionRoots {
		dir := filepath.Join(cfg.Paths.InputDir, res)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("resolution folder %s missing", dir)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}

	cfg, _, found, err := Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !found {
		t.Fatal("expected sample to be found")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
