package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"streamcap/internal/logging"
	"streamcap/internal/services"
	"streamcap/internal/store"
)

// Source polls the watchlist file and emits a full desired-state snapshot
// whenever its modification time changes.
type Source struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	out      chan []*store.Target
}

// NewSource builds a poller for the given watchlist path.
func NewSource(path string, interval time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Source{
		path:     path,
		interval: interval,
		logger:   logger.With(logging.String(logging.FieldComponent, "watchlist")),
		out:      make(chan []*store.Target, 1),
	}
}

// Snapshots delivers desired-state lists. The channel closes when Run returns.
func (s *Source) Snapshots() <-chan []*store.Target {
	return s.out
}

// Run polls until ctx is done. The first successful load always emits; after
// that only mtime changes do. Parse failures keep the previous state so a
// half-saved edit never pauses every stream.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.out)

	var lastMod time.Time
	loaded := false
	warnedMissing := false

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(s.path)
		if err == nil {
			warnedMissing = false
		}
		switch {
		case err != nil:
			if loaded {
				s.logger.Warn("watchlist file unreadable, keeping current targets",
					logging.String("path", s.path), logging.Error(err))
			} else if !warnedMissing {
				s.logger.Warn("watchlist file missing, waiting for it to appear",
					logging.String("path", s.path), logging.Error(err))
				warnedMissing = true
			}
		case !loaded || info.ModTime().After(lastMod):
			targets, err := Load(s.path)
			if err != nil {
				if errors.Is(err, services.ErrInvalidConfiguration) {
					s.logger.Error("watchlist parse failed, keeping current targets",
						logging.String("path", s.path), logging.Error(err))
					lastMod = info.ModTime()
					break
				}
				s.logger.Warn("watchlist load failed", logging.String("path", s.path), logging.Error(err))
				break
			}
			lastMod = info.ModTime()
			loaded = true
			s.logger.Info("watchlist snapshot loaded",
				logging.String("path", s.path), logging.Int("targets", len(targets)))
			select {
			case s.out <- targets:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
