package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tandem/internal/config"
	"tandem/internal/deps"
	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/syncer"
)

// Check verifies a collaborator is reachable. Failures are logged at startup
// but never stop the daemon; the sync cycle retries per mapping anyway.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Daemon owns the background sync loop and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	engine *syncer.Engine
	checks []Check

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, engine *syncer.Engine, logger *slog.Logger, checks ...Check) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "tandem.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		engine:   engine,
		checks:   checks,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, recovers interrupted mappings, and
// launches the tick loop. Connectivity check failures are logged, not fatal.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tandem daemon instance is already running")
	}

	if _, err := d.engine.RecoverCrashed(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover interrupted mappings: %w", err)
	}

	for _, tool := range deps.Missing(deps.Check(deps.Tooling(d.cfg))) {
		d.logger.WarnContext(ctx, "external tool unavailable, preparation jobs will fail",
			logging.String("tool", tool.Name),
			logging.String("detail", tool.Detail))
	}

	for _, check := range d.checks {
		if err := check.Run(ctx); err != nil {
			d.logger.WarnContext(ctx, "connectivity check failed",
				logging.String("service", check.Name),
				logging.Error(err))
		} else {
			d.logger.InfoContext(ctx, "connectivity check passed",
				logging.String("service", check.Name))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)
	d.wg.Add(1)
	go d.run(runCtx)

	d.logger.InfoContext(ctx, "tandem daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop terminates background processing, waits for the loop to exit, and
// releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tandem daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the background loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
