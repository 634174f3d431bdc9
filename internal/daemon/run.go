package daemon

import (
	"context"
	"errors"
	"time"

	"tandem/internal/logging"
)

// run is the daemon's only worker goroutine. Reconciliation and queue
// draining share it, so a cycle never overlaps a preparation job and no
// other synchronization is needed.
func (d *Daemon) run(ctx context.Context) {
	defer d.wg.Done()

	syncInterval := time.Duration(d.cfg.Sync.IntervalMinutes) * time.Minute
	pollInterval := time.Duration(d.cfg.Sync.QueuePollSeconds) * time.Second

	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	d.logger.InfoContext(ctx, "sync loop running",
		logging.Duration("sync_interval", syncInterval),
		logging.Duration("queue_poll_interval", pollInterval))

	// Pick up work queued while the daemon was down.
	d.claimPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			d.claimPending(ctx)
		case <-syncTicker.C:
			if err := d.engine.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.ErrorContext(ctx, "sync cycle failed", logging.Error(err))
			}
		}
	}
}

// claimPending prepares at most one queued mapping per tick.
func (d *Daemon) claimPending(ctx context.Context) {
	claimed, err := d.engine.PrepareNext(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.logger.ErrorContext(ctx, "queue check failed", logging.Error(err))
		}
		return
	}
	if claimed {
		d.logger.DebugContext(ctx, "queued mapping prepared")
	}
}
