package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"airwave/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	Socket  string `toml:"socket"`
}

// Playback contains configuration for the audio engine.
type Playback struct {
	SampleRate    int `toml:"sample_rate"`
	BufferMillis  int `toml:"buffer_millis"`
	VolumePercent int `toml:"volume_percent"`
}

// NowPlaying contains configuration for the remote now-playing API and the
// coordinator's timing behaviour.
type NowPlaying struct {
	RemoteAPIURL          string `toml:"remote_api_url"`
	TrackedHost           string `toml:"tracked_host"`
	PollInterval          int    `toml:"poll_interval"`
	DiscontinuityDebounce int    `toml:"discontinuity_debounce"`
	RequestTimeout        int    `toml:"request_timeout"`
}

// Artwork contains configuration for cover-art resolution.
type Artwork struct {
	FetchTimeout int `toml:"fetch_timeout"`
	ThumbSize    int `toml:"thumb_size"`
}

// Recognition contains configuration for the fingerprint pipeline.
type Recognition struct {
	CaptureBinary    string `toml:"capture_binary"`
	RecognizerBinary string `toml:"recognizer_binary"`
	CaptureSeconds   int    `toml:"capture_seconds"`
	DisplaySeconds   int    `toml:"display_seconds"`
	Timeout          int    `toml:"timeout"`
}

// Search contains configuration for the station search lookup.
type Search struct {
	APIURL string `toml:"api_url"`
	Limit  int    `toml:"limit"`
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

// Config is the root configuration object.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Playback      Playback      `toml:"playback"`
	NowPlaying    NowPlaying    `toml:"nowplaying"`
	Artwork       Artwork       `toml:"artwork"`
	Recognition   Recognition   `toml:"recognition"`
	Search        Search        `toml:"search"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "airwave", "config.toml"), nil
}

// Load reads the configuration from path, or from the default location when
// path is empty. A missing file yields defaults. The second return value is
// the resolved path, the third reports whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		if env := strings.TrimSpace(os.Getenv("AIRWAVE_CONFIG")); env != "" {
			resolved = env
		} else {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				return nil, "", false, err
			}
			resolved = defaultPath
		}
	}
	expanded, err := fileutil.ExpandPath(resolved)
	if err != nil {
		return nil, "", false, fmt.Errorf("config path: %w", err)
	}

	cfg := Default()
	fromFile := false
	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, expanded, false, fmt.Errorf("parse %s: %w", expanded, err)
		}
		fromFile = true
	case errors.Is(err, fs.ErrNotExist):
		// Defaults apply.
	default:
		return nil, expanded, false, fmt.Errorf("read %s: %w", expanded, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, expanded, fromFile, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, expanded, fromFile, err
	}
	return &cfg, expanded, fromFile, nil
}

// WriteSample writes the embedded sample configuration to path, creating
// parent directories. It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	return c.Paths.Socket
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "airwaved.lock")
}

// StationDBPath returns the station store database location.
func (c *Config) StationDBPath() string {
	return filepath.Join(c.Paths.DataDir, "stations.db")
}

// NowPlayingFilePath returns the location of the now-playing text file the
// daemon keeps current for external consumers (status bars, OBS overlays).
func (c *Config) NowPlayingFilePath() string {
	return filepath.Join(c.Paths.DataDir, "now_playing.txt")
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = fileutil.ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = fileutil.ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = filepath.Join(c.Paths.DataDir, "airwaved.sock")
	} else if c.Paths.Socket, err = fileutil.ExpandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}

	c.NowPlaying.RemoteAPIURL = strings.TrimSpace(c.NowPlaying.RemoteAPIURL)
	c.NowPlaying.TrackedHost = strings.TrimSpace(strings.ToLower(c.NowPlaying.TrackedHost))
	c.Recognition.CaptureBinary = strings.TrimSpace(c.Recognition.CaptureBinary)
	c.Recognition.RecognizerBinary = strings.TrimSpace(c.Recognition.RecognizerBinary)
	c.Search.APIURL = strings.TrimSpace(c.Search.APIURL)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
