package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type staleSessionStopper interface {
	ReapStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Reaper periodically stops sessions that have been in flight longer than
// maxAge, so a forgotten timer does not run forever.
type Reaper struct {
	sessions staleSessionStopper
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewReaper(sessions staleSessionStopper, interval, maxAge time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		sessions: sessions,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		stopChan: make(chan struct{}),
	}
}

// Run sweeps once on startup and then every interval until ctx is done or
// Stop is called.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info("session reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("max_age", r.maxAge),
	)
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stopChan:
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// Stop ends Run. It may be called any number of times, concurrently.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := r.now().Add(-r.maxAge)
	stopped, err := r.sessions.ReapStale(ctx, cutoff)
	if err != nil {
		r.logger.Error("session reaper sweep failed", zap.Error(err))
		return
	}
	if stopped > 0 {
		r.logger.Info("stopped stale sessions", zap.Int("count", stopped), zap.Time("cutoff", cutoff))
	}
}
