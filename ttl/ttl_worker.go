package ttl

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes rows whose TTL has elapsed and reports how many it removed.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) int
}

// TTLWorker periodically sweeps expired rows out of a Purger. Reads already hide
// expired rows, so the worker only reclaims memory.
type TTLWorker struct {
	purger   Purger
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewTTLWorker(purger Purger, interval time.Duration, logger *slog.Logger) *TTLWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTLWorker{
		purger:   purger,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *TTLWorker) Start() {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer close(w.doneCh)
		for {
			select {
			case <-ticker.C:
				w.sweep()
			case <-w.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the worker and waits for an in-flight sweep to finish.
func (w *TTLWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *TTLWorker) sweep() int {
	n := w.purger.PurgeExpired(context.Background(), w.now())
	if n > 0 {
		w.logger.Info("purged expired rows", "count", n)
	}
	return n
}
