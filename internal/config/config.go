package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	ConfDir   string `toml:"conf_dir"`
	LogDir    string `toml:"log_dir"`
}

// Watch contains configuration for directory watching and file stability.
type Watch struct {
	// ResolutionRoots are the top-level input subfolders that map files to
	// a target resolution, e.g. ["480", "720", "1080"].
	ResolutionRoots []string `toml:"resolution_roots"`
	VideoExtensions []string `toml:"video_extensions"`
	// ScanInterval is the seconds between stability passes over pending
	// candidates. A file must be unchanged across two passes before it is
	// fingerprinted and enqueued.
	ScanInterval int `toml:"scan_interval"`
}

// Encoder contains configuration for the transcode collaborator.
type Encoder struct {
	Profile string `toml:"profile"`
}

// Worker contains configuration for the consumer loop.
type Worker struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Rotation contains configuration for periodic archival of terminal tasks.
type Rotation struct {
	Threshold     int `toml:"threshold"`
	DebounceTicks int `toml:"debounce_ticks"`
	CheckInterval int `toml:"check_interval"`
}

// Queue contains configuration for the task store.
type Queue struct {
	// LockTimeout bounds the wait for the store lock, in seconds. Holds are
	// sub-second in normal operation, so a timeout is treated as fatal.
	LockTimeout int `toml:"lock_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queued         bool   `toml:"queued"`
	Started        bool   `toml:"started"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
	Rotation       bool   `toml:"rotation"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shrink.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Encoder       Encoder       `toml:"encoder"`
	Worker        Worker        `toml:"worker"`
	Rotation      Rotation      `toml:"rotation"`
	Queue         Queue         `toml:"queue"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shrink/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("shrink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs, including one
// input subfolder per resolution root.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.InputDir, c.Paths.OutputDir, c.Paths.ConfDir, c.Paths.LogDir}
	for _, root := range c.Watch.ResolutionRoots {
		dirs = append(dirs, filepath.Join(c.Paths.InputDir, root))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ResolutionRootSet returns the configured roots as a lookup set.
func (c *Config) ResolutionRootSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Watch.ResolutionRoots))
	for _, root := range c.Watch.ResolutionRoots {
		set[root] = struct{}{}
	}
	return set
}

// ExtensionSet returns the recognized video extensions as a lookup set.
// Entries are lowercase and dot-prefixed.
func (c *Config) ExtensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Watch.VideoExtensions))
	for _, ext := range c.Watch.VideoExtensions {
		set[ext] = struct{}{}
	}
	return set
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
