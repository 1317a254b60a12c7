// Package supervisor runs the per-target watch/record state machine. Each
// active target gets one supervisor goroutine cycling through CheckingLive,
// Downloading, and Terminated until its context is cancelled.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamcap/internal/config"
	"streamcap/internal/fileutil"
	"streamcap/internal/gate"
	"streamcap/internal/logging"
	"streamcap/internal/platform"
	"streamcap/internal/services"
	"streamcap/internal/store"
)

// offlineCooldown is the wait between liveness probes while no session is in
// progress. It also applies after the retry budget is exhausted, so an empty
// segment list never spins the loop hot.
const offlineCooldown = time.Minute

// Store is the persistence surface the supervisor needs.
type Store interface {
	UpdateLiveStatus(ctx context.Context, id int64, live bool, title string) error
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
	SaveSegment(ctx context.Context, segment *store.Segment) error
}

// Dispatcher fires per-target actions. Implementations log their own errors;
// a failed dispatch never feeds back into the recording loop.
type Dispatcher interface {
	PartCompleted(ctx context.Context, target *store.Target, segment *store.Segment, sessionStart time.Time)
	SessionFinished(ctx context.Context, target *store.Target, segments []*store.Segment, sessionStart time.Time)
}

// Notifier pushes operator-facing events. A no-op implementation is fine.
type Notifier interface {
	RecordingStarted(ctx context.Context, target *store.Target)
	SessionFinished(ctx context.Context, target *store.Target, parts int)
	SupervisorFailed(ctx context.Context, target *store.Target, err error)
}

// Supervisor owns one target's recording loop. The target copy, the retry
// counter, and the in-memory segment list are touched by no other goroutine.
type Supervisor struct {
	target     *store.Target
	platform   platform.Platform
	gate       *gate.Gate
	store      Store
	dispatcher Dispatcher
	notifier   Notifier
	cfg        *config.Config
	logger     *slog.Logger

	// wait is swapped out in tests to make backoffs instant.
	wait func(ctx context.Context, d time.Duration) error

	tasks sync.WaitGroup
}

// New builds a supervisor for one target. The platform must already be
// resolved for the target's tag.
func New(target *store.Target, p platform.Platform, g *gate.Gate, st Store, d Dispatcher, n Notifier, cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	// Private copy: the reconciler keeps its own record of this target, and
	// the loop below mutates runtime fields like IsLive and Title.
	clone := *target
	target = &clone
	return &Supervisor{
		target:     target,
		platform:   p,
		gate:       g,
		store:      st,
		dispatcher: d,
		notifier:   n,
		cfg:        cfg,
		logger:     logging.WithTarget(logging.NewComponentLogger(logger, "supervisor"), target.URL, target.Platform),
		wait:       sleepCtx,
	}
}

// Run drives the state machine until ctx is cancelled or a fatal condition
// terminates the target. Detached dispatch tasks are drained before return.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.tasks.Wait()

	if s.target.IsLive {
		// Another supervisor in this process is already recording the target.
		// Flags from a previous process never reach here: the reconciler
		// clears them before bootstrapping.
		s.logger.Warn("target already marked live at startup, refusing duplicate supervision")
		return
	}

	s.logger.Info("supervisor started", logging.String(logging.FieldTargetName, s.target.Name))

	retryCount := 0
	var segments []*store.Segment
	var sessionStart time.Time

	for {
		if ctx.Err() != nil {
			return
		}

		if retryCount >= s.cfg.Download.MaxRetries {
			retryCount = 0
			if err := s.store.UpdateLiveStatus(ctx, s.target.ID, false, ""); err != nil && ctx.Err() == nil {
				s.logger.Error("persist not-live failed", logging.Error(err))
			}
			if len(segments) > 0 {
				s.finishSession(ctx, segments, sessionStart)
				segments = nil
			}
			if s.wait(ctx, offlineCooldown) != nil {
				return
			}
			continue
		}

		status, err := s.platform.CheckLive(ctx, s.target)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if services.IsFatal(err) {
				s.terminate(ctx, err)
				return
			}
			s.logger.Debug("liveness probe failed, treating as not live", logging.Error(err))
			status = platform.Status{}
		}

		if status.Live {
			// The retry budget counts consecutive not-live cycles; any live
			// detection starts it over.
			retryCount = 0
			if len(segments) == 0 {
				sessionStart = time.Now()
				s.notifier.RecordingStarted(ctx, s.target)
			}
			s.markLive(ctx, status)

			destDir := fileutil.ResolveOutputDir(s.cfg.Paths.OutputDir, s.target.OutputDir,
				s.cfg.Download.OutputTemplate, s.target.Name, s.target.Title, sessionStart)

			if fatal := s.downloadLoop(ctx, destDir, sessionStart, &segments); fatal || ctx.Err() != nil {
				return
			}
		} else {
			if len(segments) > 0 {
				s.logger.Error("target went offline mid-session",
					logging.Int("segments", len(segments)),
					logging.Int("retry_count", retryCount+1))
			} else {
				s.logger.Info("target not live", logging.Int("retry_count", retryCount+1))
			}
			retryCount++
		}

		backoff := offlineCooldown
		if len(segments) > 0 {
			backoff = s.cfg.RetryDelay()
		}
		if s.wait(ctx, backoff) != nil {
			return
		}
	}
}

// downloadLoop records parts back to back until the stream stops yielding
// data. It reports whether a fatal condition ended the supervisor.
func (s *Supervisor) downloadLoop(ctx context.Context, destDir string, sessionStart time.Time, segments *[]*store.Segment) bool {
	for {
		if err := s.gate.Acquire(ctx); err != nil {
			return false
		}
		segment, err := s.platform.Download(ctx, s.target, destDir)
		s.gate.Release()

		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			if services.IsFatal(err) {
				s.terminate(ctx, err)
				return true
			}
			s.logger.Warn("part download failed, treating session as ended", logging.Error(err))
			return false
		}
		if segment == nil {
			s.logger.Info("stream yielded no more data, session over",
				logging.Int("parts", len(*segments)))
			return false
		}

		if err := s.store.SaveSegment(ctx, segment); err != nil && ctx.Err() == nil {
			// The in-memory list still drives actions for this session.
			s.logger.Error("persist segment failed",
				logging.String(logging.FieldSegmentPath, segment.FilePath),
				logging.Error(err))
		}
		*segments = append(*segments, segment)
		s.logger.Info("part recorded",
			logging.String(logging.FieldSegmentPath, segment.FilePath),
			logging.Int("parts", len(*segments)))

		s.dispatchDetached(func(taskCtx context.Context) {
			s.dispatcher.PartCompleted(taskCtx, s.target, segment, sessionStart)
		})

		if s.wait(ctx, s.platform.PartDelay()) != nil {
			return false
		}
	}
}

// finishSession fires the session-finished actions with a snapshot copy so
// the supervisor can reuse its list immediately.
func (s *Supervisor) finishSession(ctx context.Context, segments []*store.Segment, sessionStart time.Time) {
	snapshot := make([]*store.Segment, len(segments))
	copy(snapshot, segments)
	s.logger.Info("live session finished", logging.Int("parts", len(snapshot)))
	s.notifier.SessionFinished(ctx, s.target, len(snapshot))
	s.dispatchDetached(func(taskCtx context.Context) {
		s.dispatcher.SessionFinished(taskCtx, s.target, snapshot, sessionStart)
	})
}

func (s *Supervisor) markLive(ctx context.Context, status platform.Status) {
	if status.Title != "" {
		s.target.Title = status.Title
	}
	s.target.IsLive = true
	if err := s.store.UpdateLiveStatus(ctx, s.target.ID, true, status.Title); err != nil && ctx.Err() == nil {
		s.logger.Error("persist live status failed", logging.Error(err))
	}
	if status.AvatarURL != "" && status.AvatarURL != s.target.AvatarURL {
		s.target.AvatarURL = status.AvatarURL
		if err := s.store.UpdateAvatar(ctx, s.target.ID, status.AvatarURL); err != nil && ctx.Err() == nil {
			s.logger.Error("persist avatar failed", logging.Error(err))
		}
	}
}

// terminate handles a fatal probe/download error. The supervisor stops for
// good; only a reconciliation restart brings the target back.
func (s *Supervisor) terminate(ctx context.Context, err error) {
	s.logger.Error("fatal error, supervisor terminated",
		logging.String(logging.FieldErrorHint, "fix the target entry in the watchlist"),
		logging.Error(err))
	s.notifier.SupervisorFailed(ctx, s.target, err)
	if s.target.IsLive {
		s.target.IsLive = false
		if uerr := s.store.UpdateLiveStatus(ctx, s.target.ID, false, ""); uerr != nil && ctx.Err() == nil {
			s.logger.Error("persist not-live failed", logging.Error(uerr))
		}
	}
}

// dispatchDetached runs fn outside the supervisor's cancellation scope so an
// in-flight dispatch survives reconciliation, while Run still drains the
// group before returning.
func (s *Supervisor) dispatchDetached(fn func(ctx context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		fn(ctx)
	}()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
