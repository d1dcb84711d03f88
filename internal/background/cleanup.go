package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredRevocationPurger removes revocation entries that no longer guard a live token
type ExpiredRevocationPurger interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupManager periodically prunes the revoked session table
type CleanupManager struct {
	revocations ExpiredRevocationPurger
	logger      *slog.Logger
	interval    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(revocations ExpiredRevocationPurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		revocations: revocations,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start runs one purge immediately, then one per interval until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := cm.revocations.CleanupExpiredTokens(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired revocations", slog.Any("error", err))
		return
	}

	if rows > 0 {
		cm.logger.Info("expired revocations purged", slog.Int64("rows_deleted", rows))
	}
}

// Stop signals the cleanup loop to exit. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
