package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamcap/internal/fileutil"
	"streamcap/internal/services"
	"streamcap/internal/store"
	"streamcap/internal/testsupport"
	"streamcap/internal/transfer"
)

type fakeSubmitter struct {
	requests []transfer.Request
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, req transfer.Request) error {
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeSubmitter) Close() error { return nil }

type fakeRunner struct {
	command  string
	args     []string
	dir      string
	stdin    string
	exitCode int
	err      error
	calls    int
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, dir string, stdin string) (int, error) {
	f.calls++
	f.command = command
	f.args = args
	f.dir = dir
	f.stdin = stdin
	return f.exitCode, f.err
}

func segment(id int64, path, caption string) *store.Segment {
	return &store.Segment{ID: id, TargetID: 1, FilePath: path, CaptionPath: caption, StartedAt: time.Now()}
}

func TestRemoteSyncBundlesMediaAndCaptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	submitter := &fakeSubmitter{}
	d := New(cfg, submitter, nil)

	target := testsupport.NewTarget("https://example.com/live", "streamer")
	action := store.Action{Kind: store.ActionRemoteSync, Enabled: true, Operation: "copy", Destination: "remote:streams"}
	segments := []*store.Segment{
		segment(1, "/data/part-1.mp4", "/data/part-1.vtt"),
		segment(2, "/data/part-2.mp4", ""),
	}

	if err := d.Dispatch(context.Background(), target, action, segments, time.Now()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(submitter.requests) != 1 {
		t.Fatalf("expected one batched request, got %d", len(submitter.requests))
	}
	req := submitter.requests[0]
	if len(req.Items) != 3 {
		t.Fatalf("expected 3 items (2 media + 1 caption), got %#v", req.Items)
	}
	if req.Items[1].SegmentID != 1 || !req.Items[1].Caption {
		t.Fatalf("caption item not tagged with owning segment: %#v", req.Items[1])
	}
	if req.Operation != "copy" || req.Destination != "remote:streams" {
		t.Fatalf("action fields not carried: %#v", req)
	}
}

func TestRemoteSyncNoSegmentsErrors(t *testing.T) {
	d := New(testsupport.NewConfig(t), &fakeSubmitter{}, nil)
	action := store.Action{Kind: store.ActionRemoteSync, Enabled: true}

	err := d.Dispatch(context.Background(), testsupport.NewTarget("https://example.com", "s"), action, nil, time.Now())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCommandPipesFileList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{}
	d := New(cfg, &fakeSubmitter{}, nil)
	d.runner = runner

	target := testsupport.NewTarget("https://example.com/live", "streamer")
	start := time.Now()
	dir := fileutil.ResolveOutputDir(cfg.Paths.OutputDir, target.OutputDir,
		cfg.Download.OutputTemplate, target.Name, "", start)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	action := store.Action{Kind: store.ActionCommand, Enabled: true, Command: "archive.sh", Args: []string{"-v"}}
	segments := []*store.Segment{
		segment(1, filepath.Join(dir, "part-1.mp4"), filepath.Join(dir, "part-1.vtt")),
	}
	if err := d.Dispatch(context.Background(), target, action, segments, start); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if runner.command != "archive.sh" || len(runner.args) != 1 {
		t.Fatalf("command not passed through: %q %v", runner.command, runner.args)
	}
	if runner.dir != dir {
		t.Fatalf("working directory = %q, want %q", runner.dir, dir)
	}
	lines := strings.Split(strings.TrimSpace(runner.stdin), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected media + caption on stdin, got %q", runner.stdin)
	}
}

func TestCommandMissingFolderAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{}
	d := New(cfg, &fakeSubmitter{}, nil)
	d.runner = runner

	action := store.Action{Kind: store.ActionCommand, Enabled: true, Command: "archive.sh"}
	segments := []*store.Segment{segment(1, "/data/part-1.mp4", "")}

	err := d.Dispatch(context.Background(), testsupport.NewTarget("https://example.com", "nobody"), action, segments, time.Now())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found for missing folder, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatal("command must not run when the folder is missing")
	}
}

func TestUnknownActionKindErrors(t *testing.T) {
	d := New(testsupport.NewConfig(t), &fakeSubmitter{}, nil)
	action := store.Action{Kind: store.ActionKind("teleport"), Enabled: true}

	err := d.Dispatch(context.Background(), testsupport.NewTarget("https://example.com", "s"), action, nil, time.Now())
	if err == nil || !strings.Contains(err.Error(), "unsupported action kind") {
		t.Fatalf("expected unsupported-action error, got %v", err)
	}
}

func TestPartCompletedSkipsDisabledActions(t *testing.T) {
	submitter := &fakeSubmitter{}
	d := New(testsupport.NewConfig(t), submitter, nil)

	target := testsupport.NewTarget("https://example.com/live", "streamer")
	target.OnPart = []store.Action{{Kind: store.ActionRemoteSync, Enabled: false, Destination: "remote:x"}}

	d.PartCompleted(context.Background(), target, segment(1, "/data/p.mp4", ""), time.Now())
	if len(submitter.requests) != 0 {
		t.Fatalf("disabled action must be skipped, got %d requests", len(submitter.requests))
	}
}

func TestSessionFinishedDeleteFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Download.DeleteAfterUpload = true
	d := New(cfg, &fakeSubmitter{}, nil)

	dir := t.TempDir()
	keep := filepath.Join(dir, "part-1.vtt")
	media := filepath.Join(dir, "part-1.mp4")
	for _, path := range []string{keep, media} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	target := testsupport.NewTarget("https://example.com/live", "streamer")
	d.SessionFinished(context.Background(), target, []*store.Segment{segment(1, media, keep)}, time.Now())

	if _, err := os.Stat(media); !os.IsNotExist(err) {
		t.Fatal("media file should be deleted")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatal("caption file should survive the fallback")
	}
}

func TestSessionFinishedNoFallbackWhenActionsExist(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Download.DeleteAfterUpload = true
	submitter := &fakeSubmitter{}
	d := New(cfg, submitter, nil)

	dir := t.TempDir()
	media := filepath.Join(dir, "part-1.mp4")
	if err := os.WriteFile(media, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	target := testsupport.NewTarget("https://example.com/live", "streamer")
	target.OnFinish = []store.Action{{Kind: store.ActionRemoteSync, Enabled: true, Destination: "remote:x"}}

	d.SessionFinished(context.Background(), target, []*store.Segment{segment(1, media, "")}, time.Now())

	if len(submitter.requests) != 1 {
		t.Fatalf("expected on-finish action to run, got %d requests", len(submitter.requests))
	}
	if _, err := os.Stat(media); err != nil {
		t.Fatal("media must not be deleted when actions are configured")
	}
}
