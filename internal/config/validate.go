package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateNowPlaying(); err != nil {
		return err
	}
	if err := c.validateArtwork(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.SampleRate <= 0 {
		return errors.New("playback.sample_rate must be positive")
	}
	if c.Playback.BufferMillis <= 0 {
		return errors.New("playback.buffer_millis must be positive")
	}
	if c.Playback.VolumePercent < 0 || c.Playback.VolumePercent > 100 {
		return errors.New("playback.volume_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateNowPlaying() error {
	if c.NowPlaying.PollInterval <= 0 {
		return errors.New("nowplaying.poll_interval must be positive")
	}
	if c.NowPlaying.DiscontinuityDebounce <= 0 {
		return errors.New("nowplaying.discontinuity_debounce must be positive")
	}
	if c.NowPlaying.RemoteAPIURL != "" {
		if _, err := url.ParseRequestURI(c.NowPlaying.RemoteAPIURL); err != nil {
			return fmt.Errorf("nowplaying.remote_api_url: %w", err)
		}
		if c.NowPlaying.TrackedHost == "" {
			return errors.New("nowplaying.tracked_host must be set when remote_api_url is configured")
		}
	}
	return nil
}

func (c *Config) validateArtwork() error {
	if c.Artwork.FetchTimeout <= 0 {
		return errors.New("artwork.fetch_timeout must be positive")
	}
	if c.Artwork.ThumbSize < 0 {
		return errors.New("artwork.thumb_size must not be negative")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.CaptureBinary == "" {
		return errors.New("recognition.capture_binary must be set")
	}
	if c.Recognition.RecognizerBinary == "" {
		return errors.New("recognition.recognizer_binary must be set")
	}
	if c.Recognition.CaptureSeconds <= 0 {
		return errors.New("recognition.capture_seconds must be positive")
	}
	if c.Recognition.DisplaySeconds <= 0 {
		return errors.New("recognition.display_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.APIURL == "" {
		return errors.New("search.api_url must be set")
	}
	if c.Search.Limit <= 0 {
		return errors.New("search.limit must be positive")
	}
	return nil
}
