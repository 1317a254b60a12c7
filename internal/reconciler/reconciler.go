// Package reconciler keeps the set of running supervisors in sync with the
// desired-state target list. Each incoming snapshot is a complete desired
// set; the controller diffs it against what is running and starts, cancels,
// or leaves alone each supervisor accordingly.
package reconciler

import (
	"context"
	"log/slog"
	"sync"

	"streamcap/internal/logging"
	"streamcap/internal/store"
)

// Store is the persistence surface the controller needs.
type Store interface {
	ResetLiveStatuses(ctx context.Context) (int64, error)
	ListActivated(ctx context.Context) ([]*store.Target, error)
	FindByURL(ctx context.Context, url string) (*store.Target, error)
	Upsert(ctx context.Context, target *store.Target) error
	DeleteTarget(ctx context.Context, id int64) error
}

// RunFunc supervises one target until its context is cancelled.
type RunFunc func(ctx context.Context, target *store.Target)

// handle pairs a running supervisor with its cancellation.
type handle struct {
	target *store.Target
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller owns the url -> supervisor registry. Only the controller's own
// loop mutates it; the mutex exists for concurrent Snapshot reads.
type Controller struct {
	st     Store
	run    RunFunc
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]*handle
}

// New builds a controller. run is invoked in a fresh goroutine per target.
func New(st Store, run RunFunc, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		st:      st,
		run:     run,
		logger:  logging.NewComponentLogger(logger, "reconciler"),
		running: make(map[string]*handle),
	}
}

// Start bootstraps supervisors from the persisted activated targets, then
// consumes desired-state snapshots until ctx is done or the channel closes.
func (c *Controller) Start(ctx context.Context, snapshots <-chan []*store.Target) error {
	// Live flags left behind by a previous process are stale: the supervisors
	// that set them are gone, and a set flag blocks fresh supervision.
	cleared, err := c.st.ResetLiveStatuses(ctx)
	if err != nil {
		return err
	}
	if cleared > 0 {
		c.logger.Info("cleared stale live flags", logging.Int64("targets", cleared))
	}

	targets, err := c.st.ListActivated(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, target := range targets {
		c.startLocked(ctx, target)
	}
	c.mu.Unlock()
	c.logger.Info("bootstrap complete", logging.Int("supervisors", len(targets)))

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case snapshot, ok := <-snapshots:
			if !ok {
				c.shutdown()
				return nil
			}
			if err := c.Apply(ctx, snapshot); err != nil {
				c.logger.Error("apply snapshot failed", logging.Error(err))
			}
		}
	}
}

// Apply reconciles running supervisors against one desired-state snapshot.
// An empty snapshot pauses everything: all supervisors stop but no persisted
// record is deleted.
func (c *Controller) Apply(ctx context.Context, newList []*store.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()

	if len(newList) == 0 {
		c.logger.Info("empty desired list, pausing all supervisors",
			logging.Int("cancelled", len(c.running)))
		for url := range c.running {
			c.cancelLocked(url)
		}
		return nil
	}

	desired := make(map[string]*store.Target, len(newList))
	for _, target := range newList {
		desired[target.URL] = target
	}

	// Targets whose url vanished are gone for good: stop and delete.
	for url, h := range c.running {
		if _, keep := desired[url]; keep {
			continue
		}
		target := h.target
		c.cancelLocked(url)
		if err := c.st.DeleteTarget(ctx, target.ID); err != nil {
			c.logger.Error("delete removed target failed",
				logging.String(logging.FieldTargetURL, url), logging.Error(err))
		} else {
			c.logger.Info("target removed",
				logging.String(logging.FieldTargetURL, url))
		}
	}

	for _, target := range newList {
		old, known := c.running[target.URL]
		if known {
			// Identity and runtime status survive reconfiguration. The
			// persisted record is fresher than the registry copy because the
			// supervisor updates live status directly in the store.
			target.ID = old.target.ID
			target.IsLive = old.target.IsLive
			target.Title = old.target.Title
			target.AvatarURL = old.target.AvatarURL
			if persisted, err := c.st.FindByURL(ctx, target.URL); err == nil && persisted != nil {
				target.ID = persisted.ID
				target.IsLive = persisted.IsLive
				target.Title = persisted.Title
				target.AvatarURL = persisted.AvatarURL
			}

			if target.EqualConfig(old.target) {
				continue
			}
			c.cancelLocked(target.URL)
		}

		if err := c.st.Upsert(ctx, target); err != nil {
			c.logger.Error("persist target failed",
				logging.String(logging.FieldTargetURL, target.URL), logging.Error(err))
			continue
		}
		if !target.Activated {
			c.logger.Info("target deactivated",
				logging.String(logging.FieldTargetURL, target.URL))
			continue
		}
		c.startLocked(ctx, target)
		if known {
			c.logger.Info("target reconfigured, supervisor restarted",
				logging.String(logging.FieldTargetURL, target.URL))
		} else {
			c.logger.Info("target added",
				logging.String(logging.FieldTargetURL, target.URL))
		}
	}
	return nil
}

// Cancel stops the supervisor for url and returns its target, or nil when
// none is running. Persisted deletion is the caller's call.
func (c *Controller) Cancel(url string) *store.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()
	h, ok := c.running[url]
	if !ok {
		return nil
	}
	c.cancelLocked(url)
	return h.target
}

// TargetStatus is one row of a diagnostics snapshot.
type TargetStatus struct {
	URL      string
	Name     string
	Platform string
	IsLive   bool
}

// Snapshot reports the currently supervised targets. Safe for concurrent use.
func (c *Controller) Snapshot() []TargetStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()
	statuses := make([]TargetStatus, 0, len(c.running))
	for _, h := range c.running {
		statuses = append(statuses, TargetStatus{
			URL:      h.target.URL,
			Name:     h.target.Name,
			Platform: h.target.Platform,
			IsLive:   h.target.IsLive,
		})
	}
	return statuses
}

// Running reports how many supervisors are active.
func (c *Controller) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()
	return len(c.running)
}

// reapLocked drops handles whose supervisor goroutine already returned on
// its own (fatal termination). Cancelled supervisors are removed at cancel
// time; a reaped target comes back on the next snapshot that lists it.
func (c *Controller) reapLocked() {
	for url, h := range c.running {
		select {
		case <-h.done:
			delete(c.running, url)
			c.logger.Info("supervisor exited, dropped from registry",
				logging.String(logging.FieldTargetURL, url))
		default:
		}
	}
}

func (c *Controller) startLocked(ctx context.Context, target *store.Target) {
	runCtx, cancel := context.WithCancel(ctx)
	h := &handle{target: target, cancel: cancel, done: make(chan struct{})}
	c.running[target.URL] = h
	go func() {
		defer close(h.done)
		c.run(runCtx, target)
	}()
}

func (c *Controller) cancelLocked(url string) {
	h, ok := c.running[url]
	if !ok {
		return
	}
	h.cancel()
	delete(c.running, url)
}

// shutdown cancels every supervisor and waits for their goroutines so the
// process can drain cleanly.
func (c *Controller) shutdown() {
	c.mu.Lock()
	handles := make([]*handle, 0, len(c.running))
	for url, h := range c.running {
		h.cancel()
		handles = append(handles, h)
		delete(c.running, url)
	}
	c.mu.Unlock()
	for _, h := range handles {
		<-h.done
	}
}
