package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LimiterPruner is the in-memory login limiter
type LimiterPruner interface {
	Prune(now time.Time) int
	Now() time.Time
	Tracked() int
}

// PruneRecorder receives the outcome of each prune pass
type PruneRecorder interface {
	LimiterPruned(removed, remaining int)
}

// CleanupManager periodically drops elapsed login-limiter windows so the
// per-IP map does not grow without bound
type CleanupManager struct {
	limiter  LimiterPruner
	recorder PruneRecorder
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. recorder may be nil.
func NewCleanupManager(
	limiter LimiterPruner,
	recorder PruneRecorder,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CleanupManager{
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the prune loop until Stop is called or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup performs one prune pass
func (cm *CleanupManager) runCleanup() {
	removed := cm.limiter.Prune(cm.limiter.Now())
	remaining := cm.limiter.Tracked()

	if cm.recorder != nil {
		cm.recorder.LimiterPruned(removed, remaining)
	}

	if removed > 0 {
		cm.logger.Debug("pruned login limiter windows",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining),
		)
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
