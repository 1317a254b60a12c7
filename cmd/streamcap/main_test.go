package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamcap/internal/config"
	"streamcap/internal/store"
)

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	content := fmt.Sprintf(`
[paths]
output_dir = %q
log_dir = %q

[watchlist]
path = %q
`,
		filepath.Join(base, "recordings"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "watchlist.toml"))
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(string(raw), "[watchlist]") {
		t.Fatalf("sample config missing watchlist section:\n%s", raw)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite failed: %v", err)
	}
}

func TestTargetsListEmpty(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, err := runCLI(t, "--config", configPath, "targets", "list")
	if err != nil {
		t.Fatalf("targets list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No targets persisted") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTargetsListRendersRows(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	target := &store.Target{
		URL: "https://example.com/live", Name: "streamer",
		Platform: "hls", Activated: true, Title: "launch day",
	}
	if err := st.Upsert(context.Background(), target); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", configPath, "targets", "list")
	if err != nil {
		t.Fatalf("targets list failed: %v\n%s", err, out)
	}
	for _, want := range []string{"streamer", "https://example.com/live", "launch day"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowPrintsEffectiveSettings(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, err := runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v\n%s", err, out)
	}
	for _, want := range []string{"[download]", "[watchlist]", filepath.Join(base, "recordings")} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusReportsNotRunning(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, err := runCLI(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Daemon: not running") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "Targets: 0 total") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	_, err := runCLI(t, "--config", configPath, "test-notify")
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing-topic error, got %v", err)
	}
}
