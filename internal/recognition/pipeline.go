// Package recognition identifies the track playing on a stream by capturing
// a short sample and running it through an audio fingerprinting tool.
package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"airwave/internal/config"
	"airwave/internal/logging"
	"airwave/internal/services"
)

// ErrInFlight is returned when an identification is already running; only
// one capture may be active at a time.
var ErrInFlight = errors.New("identification already in progress")

// ErrNoMatch is returned when the recognizer ran successfully but did not
// identify the sample.
var ErrNoMatch = errors.New("no match")

// Result is an identified track.
type Result struct {
	Title       string
	Artist      string
	ArtURL      string
	ExternalRef string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(p *Pipeline) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// Pipeline runs the capture-then-recognize flow.
type Pipeline struct {
	captureBinary    string
	recognizerBinary string
	captureSeconds   int
	timeout          time.Duration
	exec             Executor
	logger           *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// New constructs a recognition pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg.Recognition.CaptureBinary == "" || cfg.Recognition.RecognizerBinary == "" {
		return nil, errors.New("capture and recognizer binaries required")
	}
	captureSeconds := cfg.Recognition.CaptureSeconds
	if captureSeconds <= 0 {
		captureSeconds = 10
	}
	timeout := time.Duration(cfg.Recognition.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	pipeline := &Pipeline{
		captureBinary:    cfg.Recognition.CaptureBinary,
		recognizerBinary: cfg.Recognition.RecognizerBinary,
		captureSeconds:   captureSeconds,
		timeout:          timeout,
		exec:             commandExecutor{},
		logger:           logging.NewComponentLogger(logger, "recognition"),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline, nil
}

// InFlight reports whether an identification is currently running.
func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Identify captures a sample from streamURL and fingerprints it. A second
// call while one is running fails fast with ErrInFlight.
func (p *Pipeline) Identify(ctx context.Context, streamURL string) (Result, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return Result{}, ErrInFlight
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sample, err := os.CreateTemp("", "airwave-sample-*.mp3")
	if err != nil {
		return Result{}, fmt.Errorf("create sample file: %w", err)
	}
	samplePath := sample.Name()
	_ = sample.Close()
	defer func() {
		if err := os.Remove(samplePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Debug("sample cleanup failed",
				logging.String("path", samplePath),
				logging.Error(err))
		}
	}()

	if err := p.capture(ctx, streamURL, samplePath); err != nil {
		return Result{}, err
	}
	return p.recognize(ctx, samplePath)
}

// capture records captureSeconds of the stream as mono MP3, which is the
// cheapest input the fingerprinter accepts.
func (p *Pipeline) capture(ctx context.Context, streamURL, samplePath string) error {
	args := []string{
		"-y",
		"-t", strconv.Itoa(p.captureSeconds),
		"-i", streamURL,
		"-vn",
		"-ac", "1",
		"-ar", "44100",
		"-f", "mp3",
		samplePath,
	}
	p.logger.Debug("capturing sample",
		logging.String("url", streamURL),
		logging.Int("seconds", p.captureSeconds))
	if _, err := p.exec.Run(ctx, p.captureBinary, args); err != nil {
		return services.Wrap(services.ErrExternalTool, "recognition", "capture sample", err)
	}
	return nil
}

// recognizerOutput matches the JSON songrec prints for a recognized sample.
// An absent track object means the sample was not identified.
type recognizerOutput struct {
	Track *struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		URL      string `json:"url"`
		Images   struct {
			CoverArt string `json:"coverart"`
		} `json:"images"`
	} `json:"track"`
}

func (p *Pipeline) recognize(ctx context.Context, samplePath string) (Result, error) {
	out, err := p.exec.Run(ctx, p.recognizerBinary, []string{"audio-file-to-recognized-song", samplePath})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "recognition", "fingerprint sample", err)
	}

	var payload recognizerOutput
	if err := json.Unmarshal(out, &payload); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "recognition", "parse recognizer output", err)
	}
	if payload.Track == nil || payload.Track.Title == "" {
		return Result{}, ErrNoMatch
	}
	return Result{
		Title:       payload.Track.Title,
		Artist:      payload.Track.Subtitle,
		ArtURL:      payload.Track.Images.CoverArt,
		ExternalRef: payload.Track.URL,
	}, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%w: %s", err, firstLine(exitErr.Stderr))
		}
		return out, err
	}
	return out, nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
