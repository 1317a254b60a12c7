package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"streamcap/internal/config"
	"streamcap/internal/deps"
	"streamcap/internal/dispatch"
	"streamcap/internal/gate"
	"streamcap/internal/logging"
	"streamcap/internal/notifications"
	"streamcap/internal/platform"
	"streamcap/internal/reconciler"
	"streamcap/internal/store"
	"streamcap/internal/supervisor"
	"streamcap/internal/transfer"
	"streamcap/internal/watchlist"
)

// Daemon owns the streamcap process lifecycle.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	registry   *platform.Registry
	gate       *gate.Gate
	submitter  transfer.Submitter
	dispatcher *dispatch.Dispatcher
	notifier   notifications.Service
	controller *reconciler.Controller
	source     *watchlist.Source

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Supervisors   []reconciler.TargetStatus
	DBPath        string
	LockFilePath  string
	WatchlistPath string
}

// New constructs a daemon with initialized collaborators. The store is owned
// by the daemon and closed on Close.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var submitter transfer.Submitter
	if strings.TrimSpace(cfg.Transfer.AMQPURL) != "" {
		publisher, err := transfer.NewPublisher(cfg.Transfer, logger)
		if err != nil {
			return nil, fmt.Errorf("connect transfer broker: %w", err)
		}
		submitter = publisher
	} else {
		submitter = transfer.NewNoop(logger)
	}

	notifier := notifications.NewService(cfg)
	lockPath := filepath.Join(cfg.Paths.LogDir, "streamcap.lock")

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		registry:   platform.NewRegistry(cfg),
		gate:       gate.New(cfg.Download.MaxConcurrent),
		submitter:  submitter,
		dispatcher: dispatch.New(cfg, submitter, logger),
		notifier:   notifier,
		source: watchlist.NewSource(cfg.Watchlist.Path,
			cfg.WatchlistPollInterval(), logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.controller = reconciler.New(st, d.superviseTarget, logger)
	return d, nil
}

// Start acquires the instance lock, verifies external tools, and launches the
// watchlist poller and the reconciliation controller. It returns once both
// loops are running.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another streamcap instance is already running")
	}

	statuses := deps.CheckBinaries(deps.Required(d.cfg))
	for _, status := range statuses {
		if status.Available {
			continue
		}
		if status.Optional {
			d.logger.Warn("optional tool unavailable",
				logging.String("tool", status.Name),
				logging.String("detail", status.Detail))
			continue
		}
		_ = d.lock.Unlock()
		return fmt.Errorf("required tool unavailable: %s (%s)", status.Name, status.Detail)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := d.source.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("watchlist source stopped", logging.Error(err))
		}
	}()
	go func() {
		defer d.wg.Done()
		if err := d.controller.Start(runCtx, d.source.Snapshots()); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("reconciliation controller stopped", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("streamcap daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent", d.gate.Capacity()))
	if err := d.notifier.NotifyDaemonStarted(ctx, d.controller.Running()); err != nil {
		d.logger.Warn("daemon-started notification failed", logging.Error(err))
	}
	return nil
}

// Stop cancels supervision and releases the instance lock.
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
	d.logger.Info("streamcap daemon stopped")
}

// Close stops the daemon and releases its collaborators.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.submitter.Close(); err != nil {
		d.logger.Warn("close transfer submitter failed", logging.Error(err))
	}
	return d.store.Close()
}

// Status reports runtime information for diagnostics.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		Supervisors:   d.controller.Snapshot(),
		DBPath:        d.store.Path(),
		LockFilePath:  d.lockPath,
		WatchlistPath: d.cfg.Watchlist.Path,
	}
}

// superviseTarget is the RunFunc handed to the reconciler: it resolves the
// target's platform and runs one supervisor to completion.
func (d *Daemon) superviseTarget(ctx context.Context, target *store.Target) {
	p, err := d.registry.ForTarget(target)
	if err != nil {
		d.logger.Error("cannot supervise target",
			logging.String(logging.FieldTargetURL, target.URL),
			logging.String(logging.FieldPlatform, target.Platform),
			logging.Error(err))
		if nerr := d.notifier.NotifySupervisorFailed(ctx, target.Name, err); nerr != nil {
			d.logger.Warn("failure notification failed", logging.Error(nerr))
		}
		return
	}
	notifier := &notifierAdapter{svc: d.notifier, logger: d.logger}
	supervisor.New(target, p, d.gate, d.store, d.dispatcher, notifier, d.cfg, d.logger).Run(ctx)
}

// notifierAdapter bridges the notifications service to the supervisor's
// fire-and-forget surface; delivery failures only warrant a log line.
type notifierAdapter struct {
	svc    notifications.Service
	logger *slog.Logger
}

func (a *notifierAdapter) RecordingStarted(ctx context.Context, target *store.Target) {
	if err := a.svc.NotifyRecordingStarted(ctx, target.Name, target.Title); err != nil {
		a.logger.Warn("recording-started notification failed", logging.Error(err))
	}
}

func (a *notifierAdapter) SessionFinished(ctx context.Context, target *store.Target, parts int) {
	if err := a.svc.NotifySessionFinished(ctx, target.Name, parts); err != nil {
		a.logger.Warn("session-finished notification failed", logging.Error(err))
	}
}

func (a *notifierAdapter) SupervisorFailed(ctx context.Context, target *store.Target, err error) {
	if nerr := a.svc.NotifySupervisorFailed(ctx, target.Name, err); nerr != nil {
		a.logger.Warn("failure notification failed", logging.Error(nerr))
	}
}
