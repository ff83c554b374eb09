package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airwave/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, fromFile, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fromFile {
		t.Fatal("expected fromFile=false for missing config")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.NowPlaying.PollInterval != 5 {
		t.Fatalf("poll interval default = %d, want 5", cfg.NowPlaying.PollInterval)
	}
	if cfg.Recognition.CaptureBinary != "ffmpeg" {
		t.Fatalf("capture binary default = %q", cfg.Recognition.CaptureBinary)
	}
}

func TestLoadOverridesAndSocketDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[nowplaying]
poll_interval = 7
tracked_host = "Radio.Example.ORG"
remote_api_url = "https://radio.example.org/api/nowplaying"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, fromFile, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !fromFile {
		t.Fatal("expected fromFile=true")
	}
	if cfg.NowPlaying.PollInterval != 7 {
		t.Fatalf("poll interval = %d, want 7", cfg.NowPlaying.PollInterval)
	}
	if cfg.NowPlaying.TrackedHost != "radio.example.org" {
		t.Fatalf("tracked host not lowercased: %q", cfg.NowPlaying.TrackedHost)
	}
	wantSocket := filepath.Join(dir, "data", "airwaved.sock")
	if cfg.SocketPath() != wantSocket {
		t.Fatalf("socket = %q, want %q", cfg.SocketPath(), wantSocket)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero poll", func(c *config.Config) { c.NowPlaying.PollInterval = 0 }, "poll_interval"},
		{"volume range", func(c *config.Config) { c.Playback.VolumePercent = 150 }, "volume_percent"},
		{"missing capture", func(c *config.Config) { c.Recognition.CaptureBinary = "" }, "capture_binary"},
		{"tracked host required", func(c *config.Config) { c.NowPlaying.TrackedHost = "" }, "tracked_host"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error on existing file")
	}
	cfg, _, fromFile, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !fromFile {
		t.Fatal("sample config not read back")
	}
	if cfg.Search.Limit != 20 {
		t.Fatalf("sample search limit = %d", cfg.Search.Limit)
	}
}
