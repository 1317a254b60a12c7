package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"streamcap/internal/config"
	"streamcap/internal/services"
	"streamcap/internal/store"
)

type fakeExecutor struct {
	lines   []string
	err     error
	onRun   func(binary string, args []string)
	lastCmd []string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	f.lastCmd = append([]string{binary}, args...)
	if f.onRun != nil {
		f.onRun(binary, args)
	}
	for _, line := range f.lines {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return f.err
}

func testTarget(url string) *store.Target {
	return &store.Target{ID: 1, URL: url, Name: "streamer", Platform: "ytdlp"}
}

func TestRegistryUnsupportedTag(t *testing.T) {
	cfg := config.Default()
	reg := NewRegistry(&cfg)

	_, err := reg.ForTarget(&store.Target{URL: "https://example.com", Platform: "mystery"})
	if err == nil {
		t.Fatal("expected error for unknown platform tag")
	}
	if !errors.Is(err, services.ErrUnsupportedPlatform) {
		t.Fatalf("expected unsupported-platform marker, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("unsupported platform must classify as fatal")
	}
}

func TestRegistryResolvesBuiltins(t *testing.T) {
	cfg := config.Default()
	reg := NewRegistry(&cfg)

	for _, tag := range []string{"hls", "HLS", "ytdlp"} {
		p, err := reg.ForTarget(&store.Target{URL: "https://example.com", Platform: tag})
		if err != nil {
			t.Fatalf("ForTarget(%q) failed: %v", tag, err)
		}
		if p == nil {
			t.Fatalf("ForTarget(%q) returned nil platform", tag)
		}
	}
}

func TestValidateTargetURL(t *testing.T) {
	cases := []struct {
		name  string
		url   string
		fatal bool
	}{
		{"https ok", "https://example.com/live", false},
		{"http ok", "http://example.com/live", false},
		{"relative", "/live/stream", true},
		{"empty", "", true},
		{"bad scheme", "rtmp://example.com/live", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTargetURL(&store.Target{URL: tc.url})
			if tc.fatal {
				if !errors.Is(err, services.ErrInvalidConfiguration) {
					t.Fatalf("expected invalid-configuration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestYTDLPCheckLiveParsesMetadata(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		"[youtube] downloading webpage",
		`{"is_live": true, "title": "launch day", "uploader_avatar_url": "https://img.example/a.png"}`,
	}}
	y := &ytdlp{binary: "yt-dlp", exec: exec}

	status, err := y.CheckLive(context.Background(), testTarget("https://example.com/live"))
	if err != nil {
		t.Fatalf("CheckLive failed: %v", err)
	}
	if !status.Live || status.Title != "launch day" || status.AvatarURL != "https://img.example/a.png" {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestYTDLPCheckLiveOfflineExitIsNotLive(t *testing.T) {
	exec := &fakeExecutor{
		lines: []string{"ERROR: [youtube] this channel is not currently live"},
		err:   errors.New("exit status 1"),
	}
	y := &ytdlp{binary: "yt-dlp", exec: exec}

	status, err := y.CheckLive(context.Background(), testTarget("https://example.com/live"))
	if err != nil {
		t.Fatalf("offline exit should not error: %v", err)
	}
	if status.Live {
		t.Fatal("expected not live")
	}
}

func TestYTDLPCheckLiveUnsupportedURLIsFatal(t *testing.T) {
	exec := &fakeExecutor{
		lines: []string{"ERROR: Unsupported URL: https://example.com/nonsense"},
		err:   errors.New("exit status 1"),
	}
	y := &ytdlp{binary: "yt-dlp", exec: exec}

	_, err := y.CheckLive(context.Background(), testTarget("https://example.com/nonsense"))
	if !errors.Is(err, services.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid-configuration, got %v", err)
	}
}

func TestYTDLPDownloadNoFileMeansNoSegment(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1")}
	y := &ytdlp{binary: "yt-dlp", exec: exec}

	segment, err := y.Download(context.Background(), testTarget("https://example.com/live"), t.TempDir())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if segment != nil {
		t.Fatalf("expected no segment, got %#v", segment)
	}
}

func TestYTDLPDownloadBuildsSegment(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	exec.onRun = func(_ string, args []string) {
		// The -o flag carries the output path yt-dlp would write.
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				_ = os.WriteFile(args[i+1], []byte("media"), 0o644)
			}
		}
	}
	y := &ytdlp{binary: "yt-dlp", exec: exec}

	target := testTarget("https://example.com/live")
	target.Title = "current show"
	segment, err := y.Download(context.Background(), target, dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if segment == nil {
		t.Fatal("expected segment")
	}
	if segment.TargetID != target.ID || segment.Title != "current show" {
		t.Fatalf("unexpected segment: %#v", segment)
	}
	if filepath.Dir(segment.FilePath) != dir {
		t.Fatalf("segment outside dest dir: %q", segment.FilePath)
	}
}

func TestHLSCheckLive(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("#EXTM3U"))
	}))
	defer live.Close()
	offline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer offline.Close()

	cfg := config.Default()
	h := newHLS(cfg.Platforms.HLS)

	status, err := h.CheckLive(context.Background(), testTarget(live.URL))
	if err != nil {
		t.Fatalf("CheckLive failed: %v", err)
	}
	if !status.Live {
		t.Fatal("expected live on 200")
	}

	status, err = h.CheckLive(context.Background(), testTarget(offline.URL))
	if err != nil {
		t.Fatalf("CheckLive failed: %v", err)
	}
	if status.Live {
		t.Fatal("expected not live on 404")
	}
}

func TestHLSDownloadRecordsPart(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	exec.onRun = func(_ string, args []string) {
		// Last argument is the ffmpeg output path.
		_ = os.WriteFile(args[len(args)-1], []byte("media"), 0o644)
	}
	h := &hls{binary: "ffmpeg", exec: exec}

	segment, err := h.Download(context.Background(), testTarget("https://example.com/live.m3u8"), dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if segment == nil || segment.CaptionPath != "" {
		t.Fatalf("unexpected segment: %#v", segment)
	}
}
