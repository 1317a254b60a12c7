package config

const (
	defaultOutputDir             = "~/.local/share/streamcap/recordings"
	defaultLogDir                = "~/.local/share/streamcap/logs"
	defaultWatchlistPath         = "~/.config/streamcap/watchlist.toml"
	defaultMaxConcurrent         = 3
	defaultMaxRetries            = 3
	defaultRetryDelaySeconds     = 10
	defaultOutputTemplate        = "{name}/{date}"
	defaultWatchlistPollSeconds  = 15
	defaultFFmpegBinary          = "ffmpeg"
	defaultYTDLPBinary           = "yt-dlp"
	defaultHLSPartDelaySeconds   = 2
	defaultHLSProbeTimeout       = 15
	defaultYTDLPPartDelaySeconds = 5
	defaultTransferExchange      = "streamcap"
	defaultTransferRoutingKey    = "transfer.requests"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			MaxConcurrent:     defaultMaxConcurrent,
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			OutputTemplate:    defaultOutputTemplate,
		},
		Watchlist: Watchlist{
			Path:                defaultWatchlistPath,
			PollIntervalSeconds: defaultWatchlistPollSeconds,
		},
		Platforms: Platforms{
			HLS: HLS{
				FFmpegBinary:        defaultFFmpegBinary,
				PartDelaySeconds:    defaultHLSPartDelaySeconds,
				ProbeTimeoutSeconds: defaultHLSProbeTimeout,
			},
			YTDLP: YTDLP{
				Binary:           defaultYTDLPBinary,
				PartDelaySeconds: defaultYTDLPPartDelaySeconds,
			},
		},
		Transfer: Transfer{
			Exchange:   defaultTransferExchange,
			RoutingKey: defaultTransferRoutingKey,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
