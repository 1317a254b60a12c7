package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"streamcap/internal/config"
	"streamcap/internal/services"
	"streamcap/internal/store"
)

// ytdlp delegates both probing and recording to the yt-dlp binary, which
// understands most streaming sites. Probe metadata comes from --dump-json.
type ytdlp struct {
	binary    string
	partDelay time.Duration
	exec      Executor
}

func newYTDLP(cfg config.YTDLP) *ytdlp {
	return &ytdlp{
		binary:    cfg.Binary,
		partDelay: time.Duration(cfg.PartDelaySeconds) * time.Second,
		exec:      commandExecutor{},
	}
}

func (y *ytdlp) Name() string { return "ytdlp" }

func (y *ytdlp) PartDelay() time.Duration { return y.partDelay }

func (y *ytdlp) CheckLive(ctx context.Context, target *store.Target) (Status, error) {
	if err := validateTargetURL(target); err != nil {
		return Status{}, err
	}

	var lines []string
	args := []string{"--dump-json", "--no-download", "--no-warnings", target.URL}
	err := y.exec.Run(ctx, y.binary, args, func(line string) {
		lines = append(lines, line)
	})
	output := strings.Join(lines, "\n")

	if err != nil {
		if isUnsupportedURL(output) {
			return Status{}, services.Wrap(services.ErrInvalidConfiguration, "ytdlp",
				fmt.Sprintf("url %q rejected by extractor", target.URL), err)
		}
		// Offline channels make yt-dlp exit nonzero; treat as not live.
		return Status{Live: false}, nil
	}

	meta := extractJSON(output)
	if meta == "" {
		return Status{Live: false}, nil
	}
	return Status{
		Live:      gjson.Get(meta, "is_live").Bool(),
		Title:     gjson.Get(meta, "title").String(),
		AvatarURL: gjson.Get(meta, "uploader_avatar_url").String(),
	}, nil
}

func (y *ytdlp) Download(ctx context.Context, target *store.Target, destDir string) (*store.Segment, error) {
	if err := validateTargetURL(target); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ytdlp", "create output directory", err)
	}

	started := time.Now()
	base := fmt.Sprintf("part-%s", started.Format("20060102-150405"))
	outPath := filepath.Join(destDir, base+".mp4")

	var output []string
	args := []string{
		"--no-warnings",
		"--write-subs", "--sub-langs", "live_chat",
		"-o", outPath,
		target.URL,
	}
	runErr := y.exec.Run(ctx, y.binary, args, func(line string) {
		output = append(output, line)
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil && isUnsupportedURL(strings.Join(output, "\n")) {
		return nil, services.Wrap(services.ErrInvalidConfiguration, "ytdlp",
			fmt.Sprintf("url %q rejected by extractor", target.URL), runErr)
	}

	info, statErr := os.Stat(outPath)
	if statErr != nil || info.Size() == 0 {
		return nil, nil
	}

	segment := &store.Segment{
		TargetID:  target.ID,
		Title:     target.Title,
		StartedAt: started,
		FilePath:  outPath,
	}
	if caption := captionFor(outPath); caption != "" {
		segment.CaptionPath = caption
	}
	return segment, nil
}

// captionFor looks for a subtitle file yt-dlp wrote next to the media file.
func captionFor(mediaPath string) string {
	stem := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	for _, ext := range []string{".live_chat.json", ".vtt", ".srt"} {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func isUnsupportedURL(output string) bool {
	return strings.Contains(output, "Unsupported URL") ||
		strings.Contains(output, "is not a valid URL")
}

// extractJSON pulls the metadata object out of mixed tool output. yt-dlp
// interleaves progress lines on stderr with the JSON document on stdout; the
// executor merges both streams.
func extractJSON(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{") && gjson.Valid(line) {
			return line
		}
	}
	return ""
}
