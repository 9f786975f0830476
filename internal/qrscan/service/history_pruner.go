package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prunable is the slice of HistoryService the pruner needs.
type Prunable interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// HistoryPruner periodically drops scan records older than the retention
// period.  A retention of 0 disables pruning entirely.
type HistoryPruner struct {
	history   Prunable
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// PrunerConfig holds the parameters for NewHistoryPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of scan history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewHistoryPruner creates a pruner but does not start it.
func NewHistoryPruner(h Prunable, cfg PrunerConfig, logger *zap.Logger) *HistoryPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HistoryPruner{
		history:   h,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start runs one prune immediately, then repeats on the interval until ctx
// is cancelled or Stop is called.
func (p *HistoryPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("history pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info("history pruner started",
		zap.Int("retention_days", int(p.retention.Hours()/24)),
		zap.Duration("interval", p.interval))
}

// Stop signals the pruner to exit and waits for it.  Safe to call more than
// once; must follow Start.
func (p *HistoryPruner) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

// Done is closed once the loop has exited.
func (p *HistoryPruner) Done() <-chan struct{} { return p.done }

func (p *HistoryPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce runs a single pass and returns the number of records removed.
func (p *HistoryPruner) PruneOnce(ctx context.Context) int {
	cutoff := p.now().UTC().Add(-p.retention)
	removed, err := p.history.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Warn("history prune persisted in memory only", zap.Int("removed", removed), zap.Error(err))
		return removed
	}
	if removed > 0 {
		p.logger.Info("history pruned",
			zap.Int("removed", removed),
			zap.Time("cutoff", cutoff))
	}
	return removed
}
