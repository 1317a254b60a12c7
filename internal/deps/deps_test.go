package deps

import (
	"os"
	"path/filepath"
	"testing"

	"streamcap/internal/config"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present")

	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "   "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary flagged, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unset command flagged, got %#v", results[2])
	}
}

func TestRequiredUsesConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Platforms.HLS.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Platforms.YTDLP.Binary = "/opt/yt-dlp"

	reqs := Required(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[0].Optional {
		t.Fatalf("ffmpeg requirement wrong: %#v", reqs[0])
	}
	if reqs[1].Command != "/opt/yt-dlp" || !reqs[1].Optional {
		t.Fatalf("yt-dlp requirement wrong: %#v", reqs[1])
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "FFmpeg", Available: false},
		{Name: "yt-dlp", Available: false, Optional: true},
		{Name: "rclone", Available: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "FFmpeg" {
		t.Fatalf("expected only FFmpeg missing, got %v", missing)
	}
}
