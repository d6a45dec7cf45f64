package config

const (
	defaultInputDir  = "input"
	defaultOutputDir = "output"
	defaultConfDir   = "conf"
	defaultLogDir    = "logs"

	defaultProfile = "medium"

	defaultScanInterval       = 2
	defaultWorkerPollInterval = 4
	defaultErrorRetryInterval = 10
	defaultLockTimeout        = 30

	defaultRotationThreshold     = 100
	defaultRotationDebounceTicks = 5
	defaultRotationCheckInterval = 16

	defaultNtfyRequestTimeout = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			ConfDir:   defaultConfDir,
			LogDir:    defaultLogDir,
		},
		Watch: Watch{
			ResolutionRoots: []string{"480", "720", "1080"},
			VideoExtensions: []string{".mp4", ".mkv", ".mov", ".avi", ".webm"},
			ScanInterval:    defaultScanInterval,
		},
		Encoder: Encoder{
			Profile: defaultProfile,
		},
		Worker: Worker{
			PollInterval:       defaultWorkerPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Rotation: Rotation{
			Threshold:     defaultRotationThreshold,
			DebounceTicks: defaultRotationDebounceTicks,
			CheckInterval: defaultRotationCheckInterval,
		},
		Queue: Queue{
			LockTimeout: defaultLockTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Queued:         true,
			Started:        true,
			Completed:      true,
			Errors:         true,
			Rotation:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
