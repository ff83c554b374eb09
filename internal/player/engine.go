// Package player streams internet radio to the local audio device and
// surfaces the in-band metadata the stream carries.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"

	"airwave/internal/config"
	"airwave/internal/logging"
)

const (
	userAgent        = "airwave/1.0"
	retryDelay       = 2 * time.Second
	resampleQuality  = 4
	eventBufferSize  = 16
	volumeCurveExp   = 0.5
	minVolumeDB      = -10.0
	defaultVolumePct = 50
)

// EventType classifies playback engine events.
type EventType int

const (
	// EventConnected fires once when a stream first starts producing audio.
	EventConnected EventType = iota
	// EventMetadata fires when the in-band stream title changes.
	EventMetadata
	// EventDiscontinuity fires when playback resumes after a dropped
	// connection; anything heard before the gap may not match the stream's
	// reported metadata anymore.
	EventDiscontinuity
)

// Event is a playback engine notification.
type Event struct {
	Type  EventType
	Title string
}

// Engine plays one stream at a time through the system audio device.
type Engine struct {
	sampleRate beep.SampleRate
	httpClient *http.Client
	logger     *slog.Logger
	events     chan Event

	mu            sync.Mutex
	cancel        context.CancelFunc
	ctrl          *beep.Ctrl
	volume        *effects.Volume
	volumePercent int
	paused        bool
	wg            sync.WaitGroup
	active        atomic.Int32
}

// New initializes the audio device and returns an engine. Initialization
// failure is fatal for the daemon; there is nothing to do without audio
// output.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	sampleRate := beep.SampleRate(cfg.Playback.SampleRate)
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	bufferMillis := cfg.Playback.BufferMillis
	if bufferMillis <= 0 {
		bufferMillis = 250
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Duration(bufferMillis)*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("initialize audio device: %w", err)
	}

	volumePercent := cfg.Playback.VolumePercent
	if volumePercent < 0 || volumePercent > 100 {
		volumePercent = defaultVolumePct
	}

	return &Engine{
		sampleRate: sampleRate,
		httpClient: &http.Client{
			// Streams are long-lived; only connection setup is bounded.
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				DisableCompression:    true,
			},
		},
		logger:        logging.NewComponentLogger(logger, "player"),
		events:        make(chan Event, eventBufferSize),
		volumePercent: volumePercent,
	}, nil
}

// Events returns the engine's notification channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Play starts streaming the given URL, replacing any current stream. The
// engine reconnects on its own when an established stream drops.
func (e *Engine) Play(streamURL string) error {
	streamURL = strings.TrimSpace(streamURL)
	if streamURL == "" {
		return errors.New("stream URL must not be empty")
	}

	// Wait out the old stream goroutine; its teardown Clear must not run
	// after the new stream has been handed to the speaker.
	e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.paused = false
	e.mu.Unlock()

	e.wg.Add(1)
	e.active.Add(1)
	go e.run(ctx, streamURL)
	return nil
}

// Stop ends the current stream, if any.
func (e *Engine) Stop() {
	e.stopLocked()
	e.wg.Wait()
}

// Close stops playback and closes the event channel.
func (e *Engine) Close() {
	e.Stop()
	close(e.events)
}

func (e *Engine) stopLocked() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.ctrl = nil
	e.volume = nil
	e.mu.Unlock()
	speaker.Clear()
}

// TogglePause flips the pause state and reports the new state.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return e.paused
	}
	speaker.Lock()
	e.ctrl.Paused = !e.ctrl.Paused
	e.paused = e.ctrl.Paused
	speaker.Unlock()
	return e.paused
}

// IsPaused reports whether playback is currently paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetVolume adjusts output volume as a 0-100 percentage.
func (e *Engine) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volumePercent = percent
	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.volume.Volume = percentToExponent(float64(percent))
	e.volume.Silent = percent == 0
	speaker.Unlock()
}

// Volume returns the current volume percentage.
func (e *Engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volumePercent
}

func (e *Engine) run(ctx context.Context, streamURL string) {
	defer e.wg.Done()
	defer e.active.Add(-1)

	hadSession := false
	for {
		played, err := e.streamOnce(ctx, streamURL, func() {
			if hadSession {
				e.emit(Event{Type: EventDiscontinuity})
			} else {
				e.emit(Event{Type: EventConnected})
			}
		})
		if ctx.Err() != nil {
			return
		}
		if played {
			hadSession = true
		}
		if err != nil {
			e.logger.Warn("stream interrupted",
				logging.String("url", streamURL),
				logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

// streamOnce plays a single connection until it drains or fails. onConnected
// is invoked once audio is flowing.
func (e *Engine) streamOnce(ctx context.Context, streamURL string, onConnected func()) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return false, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Icy-MetaData", "1")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream returned %d", resp.StatusCode)
	}

	var metaint int
	if val := resp.Header.Get("icy-metaint"); val != "" {
		_, _ = fmt.Sscanf(val, "%d", &metaint)
	}

	reader := newICYReader(resp.Body, metaint, func(title string) {
		e.emit(Event{Type: EventMetadata, Title: title})
	})

	streamer, format, err := decodeStream(resp.Header.Get("Content-Type"), streamURL, io.NopCloser(reader))
	if err != nil {
		return false, fmt.Errorf("decode stream: %w", err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	if format.SampleRate != e.sampleRate {
		source = beep.Resample(resampleQuality, format.SampleRate, e.sampleRate, streamer)
	}

	done := make(chan struct{})
	volume := &effects.Volume{
		Streamer: source,
		Base:     2,
		Volume:   percentToExponent(float64(e.Volume())),
		Silent:   e.Volume() == 0,
	}
	ctrl := &beep.Ctrl{
		Streamer: beep.Seq(volume, beep.Callback(func() { close(done) })),
	}

	e.mu.Lock()
	e.ctrl = ctrl
	e.volume = volume
	e.paused = false
	e.mu.Unlock()

	speaker.Play(ctrl)
	onConnected()

	select {
	case <-ctx.Done():
		speaker.Clear()
		return true, nil
	case <-done:
		speaker.Clear()
		return true, errors.New("stream ended")
	}
}

func (e *Engine) emit(event Event) {
	select {
	case e.events <- event:
	default:
		e.logger.Debug("event dropped", logging.Int("type", int(event.Type)))
	}
}

// decodeStream picks a decoder from the response content type, falling back
// to the URL extension and finally to MP3, which is what most mounts serve.
func decodeStream(contentType, streamURL string, body io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	kind := strings.ToLower(contentType)
	ext := strings.ToLower(path.Ext(strings.SplitN(streamURL, "?", 2)[0]))
	switch {
	case strings.Contains(kind, "flac") || ext == ".flac":
		return flac.Decode(body)
	case strings.Contains(kind, "ogg") || strings.Contains(kind, "vorbis") || ext == ".ogg":
		return vorbis.Decode(body)
	default:
		return mp3.Decode(body)
	}
}

// percentToExponent maps a 0-100 volume percentage onto the logarithmic
// scale the volume effect expects, with a perceptual curve so the low end
// is usable.
func percentToExponent(p float64) float64 {
	if p <= 0 {
		return minVolumeDB
	}
	if p >= 100 {
		return 0
	}
	adjusted := math.Pow(p/100.0, volumeCurveExp)
	return (1.0 - adjusted) * minVolumeDB
}
