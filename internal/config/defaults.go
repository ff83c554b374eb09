package config

const (
	defaultDataDir               = "~/.local/share/airwave"
	defaultLogDir                = "~/.local/share/airwave/logs"
	defaultSampleRate            = 44100
	defaultBufferMillis          = 250
	defaultVolumePercent         = 50
	defaultRemoteAPIURL          = "https://radio.zelixo.net/api/nowplaying"
	defaultTrackedHost           = "radio.zelixo.net"
	defaultPollInterval          = 5
	defaultDiscontinuityDebounce = 2
	defaultNowPlayingTimeout     = 10
	defaultArtFetchTimeout       = 5
	defaultArtThumbSize          = 600
	defaultCaptureBinary         = "ffmpeg"
	defaultRecognizerBinary      = "songrec"
	defaultCaptureSeconds        = 10
	defaultDisplaySeconds        = 10
	defaultRecognitionTimeout    = 60
	defaultSearchAPIURL          = "https://de1.api.radio-browser.info/json/stations/search"
	defaultSearchLimit           = 20
	defaultNotifyTimeout         = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Playback: Playback{
			SampleRate:    defaultSampleRate,
			BufferMillis:  defaultBufferMillis,
			VolumePercent: defaultVolumePercent,
		},
		NowPlaying: NowPlaying{
			RemoteAPIURL:          defaultRemoteAPIURL,
			TrackedHost:           defaultTrackedHost,
			PollInterval:          defaultPollInterval,
			DiscontinuityDebounce: defaultDiscontinuityDebounce,
			RequestTimeout:        defaultNowPlayingTimeout,
		},
		Artwork: Artwork{
			FetchTimeout: defaultArtFetchTimeout,
			ThumbSize:    defaultArtThumbSize,
		},
		Recognition: Recognition{
			CaptureBinary:    defaultCaptureBinary,
			RecognizerBinary: defaultRecognizerBinary,
			CaptureSeconds:   defaultCaptureSeconds,
			DisplaySeconds:   defaultDisplaySeconds,
			Timeout:          defaultRecognitionTimeout,
		},
		Search: Search{
			APIURL: defaultSearchAPIURL,
			Limit:  defaultSearchLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
