package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownProfiles = []string{"slow", "medium", "fast"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateRotation(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.input_dir and paths.output_dir must differ")
	}
	if c.Paths.ConfDir == "" {
		return errors.New("paths.conf_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if len(c.Watch.ResolutionRoots) == 0 {
		return errors.New("watch.resolution_roots must include at least one folder")
	}
	for _, root := range c.Watch.ResolutionRoots {
		if strings.ContainsAny(root, "/\\") {
			return fmt.Errorf("watch.resolution_roots entry %q must be a bare folder name", root)
		}
	}
	if len(c.Watch.VideoExtensions) == 0 {
		return errors.New("watch.video_extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	for _, profile := range knownProfiles {
		if c.Encoder.Profile == profile {
			return nil
		}
	}
	return fmt.Errorf("encoder.profile must be one of %s", strings.Join(knownProfiles, ", "))
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"watch.scan_interval":           c.Watch.ScanInterval,
		"worker.poll_interval":          c.Worker.PollInterval,
		"worker.error_retry_interval":   c.Worker.ErrorRetryInterval,
		"queue.lock_timeout":            c.Queue.LockTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateRotation() error {
	if c.Rotation.Threshold <= 0 {
		return errors.New("rotation.threshold must be positive")
	}
	if c.Rotation.DebounceTicks < 1 {
		return errors.New("rotation.debounce_ticks must be >= 1")
	}
	if c.Rotation.CheckInterval <= 0 {
		return errors.New("rotation.check_interval must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
			return errors.New("notifications.ntfy_topic must be a full topic URL")
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
