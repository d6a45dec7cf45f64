// Package rotation archives terminal tasks once the live store grows past
// a threshold and the queue has been idle long enough.
package rotation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"shrink/internal/config"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/queue"
)

// Manager decides when to rotate. The policy lives here; the store only
// enforces the idle invariant under its own lock.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	notifier notifications.Service
	logger   *slog.Logger

	// idleTicks counts consecutive checks where the store was over the
	// threshold with no active task. Resets on any activity.
	idleTicks int
}

// New creates a rotation manager.
func New(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "rotation"),
	}
}

// Run checks rotation conditions on a fixed interval until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) error {
	interval := time.Duration(m.cfg.Rotation.CheckInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick performs a single rotation check. Errors other than store corruption
// or lock timeout are logged and swallowed; the next tick tries again.
func (m *Manager) tick(ctx context.Context) error {
	health, err := m.store.Health(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrLockTimeout) || errors.Is(err, queue.ErrCorruptStore) {
			return err
		}
		m.logger.Warn("health check failed", logging.Error(err))
		return nil
	}

	if health.Total < m.cfg.Rotation.Threshold || health.Active() > 0 {
		m.idleTicks = 0
		return nil
	}

	m.idleTicks++
	if m.idleTicks < m.cfg.Rotation.DebounceTicks {
		m.logger.Debug("rotation pending",
			logging.Int("idle_ticks", m.idleTicks),
			logging.Int("debounce_ticks", m.cfg.Rotation.DebounceTicks),
			logging.Int(logging.FieldCount, health.Total))
		return nil
	}
	m.idleTicks = 0

	result, err := m.store.Rotate(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrQueueActive) {
			// A task slipped in between the health check and the lock hold.
			m.logger.Debug("rotation skipped, queue active", logging.Error(err))
			return nil
		}
		if errors.Is(err, queue.ErrLockTimeout) || errors.Is(err, queue.ErrCorruptStore) {
			return err
		}
		m.logger.Error("rotation failed", logging.Error(err))
		return nil
	}

	m.logger.Info("rotation complete",
		logging.Int("processed", result.Processed),
		logging.Int("errored", result.Errored),
		logging.String("success_file", result.SuccessFile),
		logging.String("error_file", result.ErrorFile))
	if err := m.notifier.Publish(ctx, notifications.EventRotationCompleted, notifications.Payload{
		"processed": strconv.Itoa(result.Processed),
		"errored":   strconv.Itoa(result.Errored),
	}); err != nil {
		m.logger.Warn("notification failed", logging.Error(err))
	}
	return nil
}
