// Command shrinkd runs the transcode orchestration daemon.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shrink/internal/config"
	"shrink/internal/daemon"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/queue"
	"shrink/internal/services/ffmpeg"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, found, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if found {
		logger.Info("configuration loaded", logging.String("config", configPath))
	} else {
		logger.Info("no configuration file found, using defaults",
			logging.String("config", configPath))
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	profile, ok := ffmpeg.ProfileByName(cfg.Encoder.Profile)
	if !ok {
		logger.Error("unknown encoder profile", logging.String("profile", cfg.Encoder.Profile))
		os.Exit(1)
	}
	client := ffmpeg.NewCLI(profile,
		ffmpeg.WithBinary(cfg.FFmpegBinary()),
		ffmpeg.WithProbeBinary(cfg.FFprobeBinary()))

	notifier := notifications.NewService(cfg)

	d := daemon.New(cfg, store, client, notifier, logger)
	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- d.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info("shrinkd shutting down")
		if err := d.Stop(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("daemon exited with error", logging.Error(err))
			os.Exit(1)
		}
	case err := <-waitErr:
		if err != nil {
			logger.Error("daemon exited with error", logging.Error(err))
			os.Exit(1)
		}
	}
}
