// Package dispatch executes per-target actions after a part completes or a
// live session finishes. Actions come in two variants: remote-sync hands the
// recorded files to the transfer pipeline, command pipes the file list into a
// user-supplied program.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"streamcap/internal/config"
	"streamcap/internal/fileutil"
	"streamcap/internal/logging"
	"streamcap/internal/services"
	"streamcap/internal/store"
	"streamcap/internal/transfer"
)

// Dispatcher runs target actions against recorded segments.
type Dispatcher struct {
	cfg       *config.Config
	submitter transfer.Submitter
	runner    CommandRunner
	logger    *slog.Logger
}

// New builds a dispatcher using the process-wide transfer submitter.
func New(cfg *config.Config, submitter transfer.Submitter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		cfg:       cfg,
		submitter: submitter,
		runner:    execRunner{},
		logger:    logger.With(logging.String(logging.FieldComponent, "dispatch")),
	}
}

// PartCompleted runs the target's on-part actions for the newest segment.
// Errors are logged, never returned; a failed action must not stop recording.
func (d *Dispatcher) PartCompleted(ctx context.Context, target *store.Target, segment *store.Segment, sessionStart time.Time) {
	d.runActions(ctx, target, target.OnPart, []*store.Segment{segment}, sessionStart, "part")
}

// SessionFinished runs the target's on-finish actions over the whole session.
// When the target has no actions at all and delete_after_upload is set, the
// session's media files are removed instead.
func (d *Dispatcher) SessionFinished(ctx context.Context, target *store.Target, segments []*store.Segment, sessionStart time.Time) {
	if len(target.OnPart) == 0 && len(target.OnFinish) == 0 {
		if d.cfg.Download.DeleteAfterUpload {
			d.deleteMediaFiles(target, segments)
		}
		return
	}
	d.runActions(ctx, target, target.OnFinish, segments, sessionStart, "session")
}

func (d *Dispatcher) runActions(ctx context.Context, target *store.Target, actions []store.Action, segments []*store.Segment, sessionStart time.Time, event string) {
	for _, action := range actions {
		if !action.Enabled {
			continue
		}
		if err := d.Dispatch(ctx, target, action, segments, sessionStart); err != nil {
			d.logger.Error("action dispatch failed",
				logging.String(logging.FieldTargetURL, target.URL),
				logging.String(logging.FieldEventType, event),
				logging.String(logging.FieldAction, string(action.Kind)),
				logging.Error(err))
		}
	}
}

// Dispatch executes a single action. Unknown variants are a programming
// defect and surface as an error rather than being swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, target *store.Target, action store.Action, segments []*store.Segment, sessionStart time.Time) error {
	switch action.Kind {
	case store.ActionRemoteSync:
		return d.remoteSync(ctx, target, action, segments)
	case store.ActionCommand:
		return d.runCommand(ctx, target, action, segments, sessionStart)
	default:
		return fmt.Errorf("dispatch: unsupported action kind %q", action.Kind)
	}
}

func (d *Dispatcher) remoteSync(ctx context.Context, target *store.Target, action store.Action, segments []*store.Segment) error {
	items := make([]transfer.Item, 0, len(segments)*2)
	for _, segment := range segments {
		items = append(items, transfer.Item{Path: segment.FilePath, SegmentID: segment.ID})
		if segment.CaptionPath != "" {
			items = append(items, transfer.Item{Path: segment.CaptionPath, SegmentID: segment.ID, Caption: true})
		}
	}
	if len(items) == 0 {
		return services.Wrap(services.ErrNotFound, "dispatch", "no files to sync", nil)
	}
	return d.submitter.Submit(ctx, transfer.NewRequest(target, action, items))
}

func (d *Dispatcher) runCommand(ctx context.Context, target *store.Target, action store.Action, segments []*store.Segment, sessionStart time.Time) error {
	title := target.Title
	if len(segments) > 0 && segments[0].Title != "" {
		title = segments[0].Title
	}
	dir := fileutil.ResolveOutputDir(d.cfg.Paths.OutputDir, target.OutputDir,
		d.cfg.Download.OutputTemplate, target.Name, title, sessionStart)
	if !fileutil.DirExists(dir) {
		return services.Wrap(services.ErrNotFound, "dispatch",
			fmt.Sprintf("output folder %q missing", dir), nil)
	}

	paths := make([]string, 0, len(segments)*2)
	for _, segment := range segments {
		if segment.FilePath != "" {
			paths = append(paths, segment.FilePath)
		}
		if segment.CaptionPath != "" {
			paths = append(paths, segment.CaptionPath)
		}
	}
	if len(paths) == 0 {
		return services.Wrap(services.ErrNotFound, "dispatch", "no files to hand to command", nil)
	}

	stdin := strings.Join(paths, "\n") + "\n"
	exitCode, err := d.runner.Run(ctx, action.Command, action.Args, dir, stdin)
	d.logger.Info("action command finished",
		logging.String(logging.FieldTargetURL, target.URL),
		logging.String("command", action.Command),
		logging.Int("exit_code", exitCode))
	if err != nil {
		return services.Wrap(services.ErrTransient, "dispatch",
			fmt.Sprintf("command %q", action.Command), err)
	}
	return nil
}

func (d *Dispatcher) deleteMediaFiles(target *store.Target, segments []*store.Segment) {
	for _, segment := range segments {
		if segment.FilePath == "" {
			continue
		}
		if err := os.Remove(segment.FilePath); err != nil && !os.IsNotExist(err) {
			d.logger.Error("delete recorded file failed",
				logging.String(logging.FieldTargetURL, target.URL),
				logging.String(logging.FieldSegmentPath, segment.FilePath),
				logging.Error(err))
			continue
		}
		d.logger.Info("recorded file deleted after session",
			logging.String(logging.FieldTargetURL, target.URL),
			logging.String(logging.FieldSegmentPath, segment.FilePath))
	}
}
