package radio

import (
	"log/slog"
	"strings"

	"airwave/internal/fileutil"
	"airwave/internal/logging"
	"airwave/internal/nowplaying"
)

// Sink receives presentation events from the orchestrator. All callbacks
// are invoked on the orchestrator goroutine and must not block.
type Sink interface {
	OnNowPlaying(info nowplaying.Info)
	OnArtResolved(path string)
	OnPlaybackStateChanged(state PlaybackState)
	OnIdentifiedTrackAdded(track IdentifiedTrack)
	OnTransientMessage(text string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnNowPlaying(nowplaying.Info)           {}
func (NopSink) OnArtResolved(string)                   {}
func (NopSink) OnPlaybackStateChanged(PlaybackState)   {}
func (NopSink) OnIdentifiedTrackAdded(IdentifiedTrack) {}
func (NopSink) OnTransientMessage(string)              {}

// FanoutSink forwards every event to each child sink in order.
type FanoutSink []Sink

func (f FanoutSink) OnNowPlaying(info nowplaying.Info) {
	for _, s := range f {
		s.OnNowPlaying(info)
	}
}

func (f FanoutSink) OnArtResolved(path string) {
	for _, s := range f {
		s.OnArtResolved(path)
	}
}

func (f FanoutSink) OnPlaybackStateChanged(state PlaybackState) {
	for _, s := range f {
		s.OnPlaybackStateChanged(state)
	}
}

func (f FanoutSink) OnIdentifiedTrackAdded(track IdentifiedTrack) {
	for _, s := range f {
		s.OnIdentifiedTrackAdded(track)
	}
}

func (f FanoutSink) OnTransientMessage(text string) {
	for _, s := range f {
		s.OnTransientMessage(text)
	}
}

// LogSink writes presentation events to the daemon log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging under the "display" component.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "display")}
}

func (s *LogSink) OnNowPlaying(info nowplaying.Info) {
	s.logger.Info("now playing",
		logging.String("title", info.Title),
		logging.String("artist", info.Artist),
		logging.String("source", info.Source.String()))
}

func (s *LogSink) OnArtResolved(path string) {
	if path != "" {
		s.logger.Debug("artwork resolved", logging.String("path", path))
	}
}

func (s *LogSink) OnPlaybackStateChanged(state PlaybackState) {
	s.logger.Info("playback state", logging.String("state", state.String()))
}

func (s *LogSink) OnIdentifiedTrackAdded(track IdentifiedTrack) {
	s.logger.Info("identified track",
		logging.String("artist", track.Artist),
		logging.String("title", track.Title))
}

func (s *LogSink) OnTransientMessage(text string) {
	s.logger.Info("message", logging.String("text", text))
}

// FileSink keeps a one-line now-playing text file current for external
// consumers such as status bars or stream overlays.
type FileSink struct {
	path   string
	logger *slog.Logger
}

// NewFileSink writes the display line to path.
func NewFileSink(path string, logger *slog.Logger) *FileSink {
	return &FileSink{path: path, logger: logging.NewComponentLogger(logger, "display")}
}

func (s *FileSink) OnNowPlaying(info nowplaying.Info) {
	line := DisplayLine(info)
	if err := fileutil.WriteFileAtomic(s.path, []byte(line+"\n"), 0o644); err != nil {
		s.logger.Warn("now-playing file write failed",
			logging.String("path", s.path),
			logging.Error(err))
	}
}

func (s *FileSink) OnArtResolved(string) {}

func (s *FileSink) OnPlaybackStateChanged(state PlaybackState) {
	if state == StateStopped {
		if err := fileutil.WriteFileAtomic(s.path, []byte("\n"), 0o644); err != nil {
			s.logger.Warn("now-playing file write failed",
				logging.String("path", s.path),
				logging.Error(err))
		}
	}
}

func (s *FileSink) OnIdentifiedTrackAdded(IdentifiedTrack) {}

func (s *FileSink) OnTransientMessage(string) {}

// DisplayLine renders metadata as a single "Artist - Title" line.
func DisplayLine(info nowplaying.Info) string {
	if info.Artist != "" && !strings.Contains(info.Title, " - ") {
		return info.Artist + " - " + info.Title
	}
	return info.Title
}
