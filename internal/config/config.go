package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Download contains the global download policy shared by all supervisors.
type Download struct {
	MaxConcurrent     int    `toml:"max_concurrent"`
	MaxRetries        int    `toml:"max_retries"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	OutputTemplate    string `toml:"output_template"`
	DeleteAfterUpload bool   `toml:"delete_after_upload"`
}

// Watchlist contains configuration for the desired-state target file.
type Watchlist struct {
	Path                string `toml:"path"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// HLS contains configuration for the ffmpeg-based HLS platform.
type HLS struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	PartDelaySeconds    int    `toml:"part_delay_seconds"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// YTDLP contains configuration for the yt-dlp backed platform.
type YTDLP struct {
	Binary           string `toml:"binary"`
	PartDelaySeconds int    `toml:"part_delay_seconds"`
}

// Platforms groups per-platform download tool settings.
type Platforms struct {
	HLS   HLS   `toml:"hls"`
	YTDLP YTDLP `toml:"ytdlp"`
}

// Transfer contains configuration for the outbound transfer broker.
type Transfer struct {
	AMQPURL    string `toml:"amqp_url"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamcap.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Download: concurrency cap, retry policy, output template, cleanup
//   - Watchlist: desired-state target file and poll interval
//   - Platforms: external tool settings per platform tag
//   - Transfer: AMQP broker used for remote-sync actions
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Download      Download      `toml:"download"`
	Watchlist     Watchlist     `toml:"watchlist"`
	Platforms     Platforms     `toml:"platforms"`
	Transfer      Transfer      `toml:"transfer"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamcap/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamcap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryDelay returns the configured inter-retry wait as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Download.RetryDelaySeconds) * time.Second
}

// WatchlistPollInterval returns the watchlist poll cadence as a duration.
func (c *Config) WatchlistPollInterval() time.Duration {
	return time.Duration(c.Watchlist.PollIntervalSeconds) * time.Second
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Watchlist.Path) == "" {
		c.Watchlist.Path = defaultWatchlistPath
	}
	if c.Watchlist.Path, err = expandPath(c.Watchlist.Path); err != nil {
		return fmt.Errorf("watchlist.path: %w", err)
	}

	if strings.TrimSpace(c.Download.OutputTemplate) == "" {
		c.Download.OutputTemplate = defaultOutputTemplate
	}
	if strings.TrimSpace(c.Platforms.HLS.FFmpegBinary) == "" {
		c.Platforms.HLS.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Platforms.YTDLP.Binary) == "" {
		c.Platforms.YTDLP.Binary = defaultYTDLPBinary
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
