// Package ffmpeg wraps the ffmpeg and ffprobe command-line tools behind
// the transcode interface the worker consumes.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"shrink/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures encode progress derived from ffmpeg stderr.
type ProgressUpdate struct {
	Percent float64
}

// Result describes a completed transcode.
type Result struct {
	OutputPath string
	OutputSize int64
}

// Client defines transcode behaviour.
type Client interface {
	Transcode(ctx context.Context, inputPath, outputPath string, height int, progress func(ProgressUpdate)) (Result, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the default ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probe = binary
		}
	}
}

// CLI wraps the ffmpeg command-line encoder with a fixed profile.
type CLI struct {
	binary  string
	probe   string
	profile Profile
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(profile Profile, opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", probe: "ffprobe", profile: profile}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// timePattern matches the running timestamp ffmpeg prints on stderr.
var timePattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// Transcode runs ffmpeg against inputPath, scaling to the given height and
// writing an x265 encode to outputPath. Progress is best-effort: it needs a
// successful duration probe and is skipped otherwise.
func (c *CLI) Transcode(ctx context.Context, inputPath, outputPath string, height int, progress func(ProgressUpdate)) (Result, error) {
	if inputPath == "" {
		return Result{}, errors.New("input path required")
	}
	if outputPath == "" {
		return Result{}, errors.New("output path required")
	}
	if height <= 0 {
		return Result{}, fmt.Errorf("invalid target height %d", height)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	duration := c.probeDuration(ctx, inputPath)

	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-c:v", "libx265",
		"-preset", c.profile.Preset,
		"-x265-params", c.profile.X265Params,
		"-crf", c.profile.CRF,
		"-c:a", "aac",
		"-b:a", "128k",
		"-y", outputPath,
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "start", inputPath, err)
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		if progress == nil || duration <= 0 {
			continue
		}
		if elapsed, ok := parseElapsed(scanner.Text()); ok {
			pct := elapsed / duration * 100
			if pct > 100 {
				pct = 100
			}
			progress(ProgressUpdate{Percent: pct})
		}
	}

	if err := cmd.Wait(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "encode", inputPath, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "stat output", outputPath, err)
	}
	return Result{OutputPath: outputPath, OutputSize: info.Size()}, nil
}

// probeDuration asks ffprobe for the container duration in seconds. A
// failed probe disables progress reporting but never fails the encode.
func (c *CLI) probeDuration(ctx context.Context, inputPath string) float64 {
	cmd := commandContext(ctx, c.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return duration
}

// scanProgressLines splits on both newlines and the carriage returns ffmpeg
// uses to redraw its stats line.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseElapsed(line string) (float64, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err1 := strconv.Atoi(match[1])
	minutes, err2 := strconv.Atoi(match[2])
	seconds, err3 := strconv.ParseFloat(match[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

var _ Client = (*CLI)(nil)
