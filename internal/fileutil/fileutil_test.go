package fileutil

import (
	"path/filepath"
	"testing"
	"time"
)

func TestExpandTemplate(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	got := ExpandTemplate("{name}/{date}", "streamer/a", "show: live", start)
	want := "streamer-a/2026-03-14_092653"
	if got != want {
		t.Fatalf("ExpandTemplate = %q, want %q", got, want)
	}

	got = ExpandTemplate("{title}", "x", "late? night*", start)
	if got != "late night-" {
		t.Fatalf("title expansion = %q", got)
	}
}

func TestExpandTemplateLeavesUnknownTokens(t *testing.T) {
	got := ExpandTemplate("{name}/{unknown}", "a", "", time.Now())
	if got != "a/{unknown}" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestResolveOutputDirOverride(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	got := ResolveOutputDir("/recordings", "", "{name}", "a", "", start)
	if got != filepath.Join("/recordings", "a") {
		t.Fatalf("root resolution = %q", got)
	}

	got = ResolveOutputDir("/recordings", "/custom", "{name}", "a", "", start)
	if got != filepath.Join("/custom", "a") {
		t.Fatalf("override resolution = %q", got)
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	if !DirExists(dir) {
		t.Fatal("expected temp dir to exist")
	}
	if DirExists(filepath.Join(dir, "absent")) {
		t.Fatal("expected missing dir to report false")
	}
}
