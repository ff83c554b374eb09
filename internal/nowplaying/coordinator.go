// Package nowplaying decides what track information the player should
// display, reconciling in-band stream metadata, the out-of-band feed and
// temporary recognition results.
package nowplaying

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"airwave/internal/artwork"
	"airwave/internal/config"
	"airwave/internal/logging"
	"airwave/internal/services/azuracast"
	"airwave/internal/stations"
	"airwave/internal/textutil"
)

// Source identifies where the displayed metadata came from.
type Source int

const (
	// SourceStationFallback is the station name shown before any track
	// metadata arrives.
	SourceStationFallback Source = iota
	// SourceInband is metadata carried inside the audio stream.
	SourceInband
	// SourceRemote is metadata from the out-of-band now-playing feed.
	SourceRemote
	// SourceRecognition is a temporary fingerprint identification.
	SourceRecognition
)

func (s Source) String() string {
	switch s {
	case SourceInband:
		return "inband"
	case SourceRemote:
		return "remote"
	case SourceRecognition:
		return "recognition"
	default:
		return "station"
	}
}

// Info is the displayable now-playing state.
type Info struct {
	Title  string
	Artist string
	ArtURL string
	Source Source
}

// Session describes the playback session the coordinator is tracking.
type Session struct {
	ID            uuid.UUID
	Station       stations.Station
	RemoteTracked bool
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn to run after d on the coordinator's owning
// goroutine. Tests substitute a deterministic implementation.
type TimerFactory func(d time.Duration, fn func()) Timer

// FeedClient is the subset of the feed client the coordinator uses.
type FeedClient interface {
	Fetch(ctx context.Context) ([]azuracast.NowPlaying, error)
}

// ArtSearcher looks up cover art for a track title. An empty URL with a nil
// error means nothing matched.
type ArtSearcher interface {
	FindArtURL(ctx context.Context, query string) (string, error)
}

// Callbacks receive coordinator output. Both are invoked on the owning
// goroutine.
type Callbacks struct {
	// OnInfo fires whenever the displayable metadata changes.
	OnInfo func(Info)
	// OnArt fires when artwork for the current metadata resolves to a local
	// file, or with "" when none could be obtained.
	OnArt func(path string)
}

// Coordinator tracks now-playing state for one session at a time. All
// methods must be called from the owning goroutine; asynchronous work posts
// its results back through the post function.
type Coordinator struct {
	feed      FeedClient
	resolver  *artwork.Resolver
	artSearch ArtSearcher
	logger    *slog.Logger
	post      func(func())
	newTimer  TimerFactory
	callbacks Callbacks

	pollInterval time.Duration
	debounce     time.Duration
	fetchTimeout time.Duration

	session  *Session
	live     Info
	override *Info

	pollTimer      Timer
	debounceTimer  Timer
	revertTimer    Timer
	pollInFlight   bool
	refreshPending bool
}

// New creates a coordinator. post marshals closures onto the owning
// goroutine; timers created by factory must fire there too.
func New(cfg *config.Config, feed FeedClient, resolver *artwork.Resolver, artSearch ArtSearcher, logger *slog.Logger, post func(func()), factory TimerFactory, callbacks Callbacks) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.NowPlaying.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	debounce := time.Duration(cfg.NowPlaying.DiscontinuityDebounce) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fetchTimeout := time.Duration(cfg.NowPlaying.RequestTimeout) * time.Second
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Coordinator{
		feed:         feed,
		resolver:     resolver,
		artSearch:    artSearch,
		logger:       logging.NewComponentLogger(logger, "nowplaying"),
		post:         post,
		newTimer:     factory,
		callbacks:    callbacks,
		pollInterval: pollInterval,
		debounce:     debounce,
		fetchTimeout: fetchTimeout,
	}
}

// StartSession begins tracking a new playback session, resetting all state
// from the previous one.
func (c *Coordinator) StartSession(session Session) {
	c.stopTimers()
	c.session = &session
	c.override = nil
	c.live = Info{
		Title:  session.Station.Name,
		Source: SourceStationFallback,
		ArtURL: session.Station.ArtURL,
	}
	c.emitInfo()
	c.resolveArt(session.ID, session.Station.ArtURL)

	if session.RemoteTracked && c.feed != nil {
		c.fetchRemote(session.ID)
		c.schedulePoll()
	}
}

// StopSession stops tracking; late async results for the old session are
// discarded by the identity checks.
func (c *Coordinator) StopSession() {
	c.stopTimers()
	c.session = nil
	c.override = nil
}

// Current returns the displayed metadata.
func (c *Coordinator) Current() Info {
	if c.override != nil {
		return *c.override
	}
	return c.live
}

// HandleInbandTitle processes a title from the stream itself. Remote-tracked
// stations ignore in-band titles; the feed is authoritative for them.
func (c *Coordinator) HandleInbandTitle(rawTitle string) {
	if c.session == nil || c.session.RemoteTracked {
		return
	}
	title := textutil.NormalizeStreamTitle(rawTitle)
	if title == "" || (c.live.Source == SourceInband && c.live.Title == title) {
		return
	}
	c.live = Info{Title: title, Source: SourceInband, ArtURL: c.session.Station.ArtURL}
	c.emitInfo()
	c.searchTrackArt(c.session.ID, title)
}

// searchTrackArt looks up cover art keyed on the in-band title, falling back
// to the station's own art when nothing matches. The result is dropped if
// the session or the displayed title moved on while the lookup ran.
func (c *Coordinator) searchTrackArt(sessionID uuid.UUID, title string) {
	stationArt := c.session.Station.ArtURL
	if c.artSearch == nil {
		c.resolveArt(sessionID, stationArt)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()
		artURL, err := c.artSearch.FindArtURL(ctx, title)
		c.post(func() {
			if c.session == nil || c.session.ID != sessionID {
				return
			}
			if c.live.Source != SourceInband || c.live.Title != title {
				return
			}
			if err != nil {
				c.logger.Debug("track art lookup failed", logging.Error(err))
				artURL = ""
			}
			if artURL == "" {
				artURL = stationArt
			} else {
				c.live.ArtURL = artURL
				if c.override == nil {
					c.emitInfo()
				}
			}
			c.resolveArt(sessionID, artURL)
		})
	}()
}

// HandleDiscontinuity debounces reconnect events and forces a feed poll
// once they settle, so the display catches up with whatever the stream
// jumped to.
func (c *Coordinator) HandleDiscontinuity() {
	if c.session == nil {
		return
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	sessionID := c.session.ID
	c.debounceTimer = c.newTimer(c.debounce, func() {
		c.debounceTimer = nil
		if c.session == nil || c.session.ID != sessionID {
			return
		}
		if c.session.RemoteTracked && c.feed != nil {
			c.fetchRemote(sessionID)
		}
	})
}

// ApplyRecognition overrides the display with an identified track for the
// given duration, then reverts to the live metadata.
func (c *Coordinator) ApplyRecognition(title, artist, artURL string, display time.Duration) {
	if c.session == nil {
		return
	}
	sessionID := c.session.ID
	c.override = &Info{Title: title, Artist: artist, ArtURL: artURL, Source: SourceRecognition}
	c.emitInfo()
	c.resolveArt(sessionID, artURL)

	if c.revertTimer != nil {
		c.revertTimer.Stop()
	}
	c.revertTimer = c.newTimer(display, func() {
		c.revertTimer = nil
		if c.session == nil || c.session.ID != sessionID || c.override == nil {
			return
		}
		c.override = nil
		c.emitInfo()
		c.resolveArt(sessionID, c.live.ArtURL)
	})
}

func (c *Coordinator) schedulePoll() {
	if c.session == nil {
		return
	}
	sessionID := c.session.ID
	c.pollTimer = c.newTimer(c.pollInterval, func() {
		c.pollTimer = nil
		if c.session == nil || c.session.ID != sessionID {
			return
		}
		c.fetchRemote(sessionID)
		c.schedulePoll()
	})
}

// fetchRemote polls the feed off the owning goroutine and posts the result
// back, dropping it if the session changed meanwhile. A request arriving
// while one is in flight runs again on completion rather than being lost.
func (c *Coordinator) fetchRemote(sessionID uuid.UUID) {
	if c.pollInFlight {
		c.refreshPending = true
		return
	}
	c.pollInFlight = true
	remoteID := c.session.Station.RemoteID
	stationName := c.session.Station.Name

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()
		entries, err := c.feed.Fetch(ctx)
		c.post(func() {
			c.pollInFlight = false
			if c.session == nil || c.session.ID != sessionID {
				c.refreshPending = false
				return
			}
			if err != nil {
				c.logger.Debug("feed poll failed", logging.Error(err))
			} else {
				c.applyRemote(entries, remoteID, stationName)
			}
			if c.refreshPending {
				c.refreshPending = false
				c.fetchRemote(sessionID)
			}
		})
	}()
}

func (c *Coordinator) applyRemote(entries []azuracast.NowPlaying, remoteID int64, stationName string) {
	for _, entry := range entries {
		if !matchesStation(entry, remoteID, stationName) {
			continue
		}
		title := textutil.NormalizeStreamTitle(entry.Title)
		if title == "" {
			return
		}
		artURL := entry.ArtURL
		if artURL == "" {
			artURL = c.session.Station.ArtURL
		}
		if c.live.Source == SourceRemote && c.live.Title == title && c.live.ArtURL == artURL {
			return
		}
		c.live = Info{Title: title, Source: SourceRemote, ArtURL: artURL}
		if c.override == nil {
			c.emitInfo()
			c.resolveArt(c.session.ID, artURL)
		}
		return
	}
}

// matchesStation pairs a feed entry with the tracked station, preferring
// the stored remote id and falling back to the station name.
func matchesStation(entry azuracast.NowPlaying, remoteID int64, stationName string) bool {
	if remoteID != 0 {
		return entry.StationID == remoteID
	}
	return entry.StationName == stationName
}

// resolveArt fetches artwork off the owning goroutine. The session identity
// check on the way back prevents stale art from a previous station or track
// overwriting the current display.
func (c *Coordinator) resolveArt(sessionID uuid.UUID, artURL string) {
	if c.resolver == nil || c.callbacks.OnArt == nil {
		return
	}
	if artURL == "" {
		c.callbacks.OnArt("")
		return
	}
	go func() {
		path := c.resolver.Resolve(context.Background(), artURL)
		c.post(func() {
			if c.session == nil || c.session.ID != sessionID {
				return
			}
			c.callbacks.OnArt(path)
		})
	}()
}

func (c *Coordinator) emitInfo() {
	if c.callbacks.OnInfo != nil {
		c.callbacks.OnInfo(c.Current())
	}
}

func (c *Coordinator) stopTimers() {
	for _, timer := range []Timer{c.pollTimer, c.debounceTimer, c.revertTimer} {
		if timer != nil {
			timer.Stop()
		}
	}
	c.pollTimer = nil
	c.debounceTimer = nil
	c.revertTimer = nil
	c.pollInFlight = false
	c.refreshPending = false
}
