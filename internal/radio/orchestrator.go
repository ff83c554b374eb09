// Package radio contains the orchestrator that owns all mutable playback
// state. Background workers never touch that state directly; they post
// closures onto the orchestrator's task queue, and the Run loop applies
// them one at a time.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"airwave/internal/artwork"
	"airwave/internal/config"
	"airwave/internal/ipc"
	"airwave/internal/logging"
	"airwave/internal/nowplaying"
	"airwave/internal/player"
	"airwave/internal/recognition"
	"airwave/internal/stations"
)

// PlaybackState describes the current session's lifecycle stage.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StateConnecting
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Session is the currently tuned station, replaced wholesale on every tune.
type Session struct {
	ID            uuid.UUID
	Station       stations.Station
	State         PlaybackState
	RemoteTracked bool
}

// IdentifiedTrack is one successful recognition, kept in an append-only
// session log. LookupURL is filled in asynchronously after the track is
// shown.
type IdentifiedTrack struct {
	Title       string
	Artist      string
	ArtURL      string
	ExternalRef string
	LookupURL   string
	At          time.Time
}

// Player is the subset of the playback engine the orchestrator drives.
type Player interface {
	Play(streamURL string) error
	Stop()
	TogglePause() bool
	Events() <-chan player.Event
}

// Recognizer identifies the currently playing audio.
type Recognizer interface {
	Identify(ctx context.Context, streamURL string) (recognition.Result, error)
}

// Enricher resolves an identified track to an external lookup page.
type Enricher interface {
	RecordingURL(ctx context.Context, artist, title string) (string, error)
}

// Notifier pushes out-of-band notifications. Implementations must tolerate
// being called with a canceled context.
type Notifier interface {
	TrackIdentified(ctx context.Context, artist, title string)
	PlaybackError(ctx context.Context, message string)
}

// StationDirectory lists the saved stations in display order.
type StationDirectory interface {
	List(ctx context.Context) ([]stations.Station, error)
}

// Options wires an Orchestrator's collaborators. Engine, Directory and Sink
// are required; the rest degrade to no-ops when absent.
type Options struct {
	Config     *config.Config
	Engine     Player
	Directory  StationDirectory
	Sink       Sink
	Feed       nowplaying.FeedClient
	Resolver   *artwork.Resolver
	ArtSearch  nowplaying.ArtSearcher
	Recognizer Recognizer
	Enricher   Enricher
	Notifier   Notifier
	Logger     *slog.Logger

	// TimerFactory overrides the coordinator's timers; tests use this.
	TimerFactory nowplaying.TimerFactory
}

// Orchestrator is the single-threaded owner of playback state.
type Orchestrator struct {
	cfg       *config.Config
	engine    Player
	directory StationDirectory
	sink      Sink

	recognizer Recognizer
	enricher   Enricher
	notifier   Notifier
	logger     *slog.Logger

	coord *nowplaying.Coordinator
	tasks chan func()

	session    *Session
	identified []IdentifiedTrack
}

// New builds an orchestrator. Run must be called before any method takes
// effect.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("orchestrator requires config")
	}
	if opts.Engine == nil {
		return nil, errors.New("orchestrator requires a playback engine")
	}
	if opts.Directory == nil {
		return nil, errors.New("orchestrator requires a station directory")
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	o := &Orchestrator{
		cfg:        opts.Config,
		engine:     opts.Engine,
		directory:  opts.Directory,
		sink:       opts.Sink,
		recognizer: opts.Recognizer,
		enricher:   opts.Enricher,
		notifier:   opts.Notifier,
		logger:     logging.NewComponentLogger(opts.Logger, "radio"),
		tasks:      make(chan func(), 128),
	}

	// Timer callbacks always come back through the task queue so they run
	// on the Run goroutine, whichever factory produced them.
	factory := func(d time.Duration, fn func()) nowplaying.Timer {
		return time.AfterFunc(d, func() { o.post(fn) })
	}
	if opts.TimerFactory != nil {
		userFactory := opts.TimerFactory
		factory = func(d time.Duration, fn func()) nowplaying.Timer {
			return userFactory(d, func() { o.post(fn) })
		}
	}
	o.coord = nowplaying.New(opts.Config, opts.Feed, opts.Resolver, opts.ArtSearch, opts.Logger, o.post, factory, nowplaying.Callbacks{
		OnInfo: func(info nowplaying.Info) { o.sink.OnNowPlaying(info) },
		OnArt:  func(path string) { o.sink.OnArtResolved(path) },
	})
	return o, nil
}

// post marshals fn onto the Run loop.
func (o *Orchestrator) post(fn func()) {
	o.tasks <- fn
}

// Run applies tasks and engine events in arrival order until ctx is
// canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return
		case fn := <-o.tasks:
			fn()
		case event, ok := <-o.engine.Events():
			if ok {
				o.handleEngineEvent(event)
			}
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.engine.Stop()
	o.coord.StopSession()
	if o.session != nil {
		o.session = nil
		o.sink.OnPlaybackStateChanged(StateStopped)
	}
}

// Start tunes the first saved station.
func (o *Orchestrator) Start() {
	o.post(func() {
		station, ok := o.stationAt(0)
		if !ok {
			o.sink.OnTransientMessage("no stations saved")
			return
		}
		o.tune(station)
	})
}

// HandleToken dispatches a control-channel token. Safe to call from any
// goroutine.
func (o *Orchestrator) HandleToken(token string) {
	o.post(func() {
		switch token {
		case ipc.TokenPlayPause:
			o.playPause()
		case ipc.TokenNextStation:
			o.step(1)
		case ipc.TokenPrevStation:
			o.step(-1)
		case ipc.TokenIdentify:
			o.identify()
		default:
			o.logger.Warn("unhandled control token", logging.String("token", token))
		}
	})
}

// CurrentSession returns a snapshot of the active session.
func (o *Orchestrator) CurrentSession() (Session, bool) {
	reply := make(chan *Session, 1)
	o.post(func() {
		if o.session == nil {
			reply <- nil
			return
		}
		copied := *o.session
		reply <- &copied
	})
	if s := <-reply; s != nil {
		return *s, true
	}
	return Session{}, false
}

// NowPlaying returns the currently displayed metadata.
func (o *Orchestrator) NowPlaying() nowplaying.Info {
	reply := make(chan nowplaying.Info, 1)
	o.post(func() { reply <- o.coord.Current() })
	return <-reply
}

// IdentifiedTracks returns the session's recognition log.
func (o *Orchestrator) IdentifiedTracks() []IdentifiedTrack {
	reply := make(chan []IdentifiedTrack, 1)
	o.post(func() {
		out := make([]IdentifiedTrack, len(o.identified))
		copy(out, o.identified)
		reply <- out
	})
	return <-reply
}

func (o *Orchestrator) playPause() {
	if o.session == nil {
		if station, ok := o.stationAt(0); ok {
			o.tune(station)
		} else {
			o.sink.OnTransientMessage("no stations saved")
		}
		return
	}
	if o.engine.TogglePause() {
		o.session.State = StatePaused
	} else {
		o.session.State = StatePlaying
	}
	o.sink.OnPlaybackStateChanged(o.session.State)
}

// step moves delta entries through the station list relative to the current
// station's stream URL, wrapping around. A current station missing from the
// list falls back to the first entry.
func (o *Orchestrator) step(delta int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	list, err := o.directory.List(ctx)
	cancel()
	if err != nil {
		o.logger.Error("station list unavailable", logging.Error(err))
		o.sink.OnTransientMessage("station list unavailable")
		return
	}
	if len(list) == 0 {
		o.sink.OnTransientMessage("no stations saved")
		return
	}

	target := list[0]
	if o.session != nil {
		for i, station := range list {
			if station.StreamURL == o.session.Station.StreamURL {
				target = list[(i+delta+len(list))%len(list)]
				break
			}
		}
	}
	o.tune(target)
}

// tune starts a new session for the station. Tuning the station that is
// already current is a no-op.
func (o *Orchestrator) tune(station stations.Station) {
	if o.session != nil && o.session.Station.StreamURL == station.StreamURL {
		return
	}

	session := &Session{
		ID:            uuid.New(),
		Station:       station,
		State:         StateConnecting,
		RemoteTracked: o.isRemoteTracked(station.StreamURL),
	}
	o.session = session
	o.sink.OnPlaybackStateChanged(StateConnecting)
	o.logger.Info("tuning station",
		logging.String("station", station.Name),
		logging.String("url", station.StreamURL),
		logging.Bool("remote_tracked", session.RemoteTracked))

	if err := o.engine.Play(station.StreamURL); err != nil {
		o.logger.Error("playback start failed", logging.Error(err))
		o.sink.OnTransientMessage(fmt.Sprintf("cannot play %s", station.Name))
		o.notifyError(fmt.Sprintf("playback failed for %s", station.Name))
		o.session = nil
		o.sink.OnPlaybackStateChanged(StateStopped)
		return
	}

	o.coord.StartSession(nowplaying.Session{
		ID:            session.ID,
		Station:       station,
		RemoteTracked: session.RemoteTracked,
	})
}

// isRemoteTracked reports whether the stream is served by the host whose
// out-of-band now-playing feed we poll.
func (o *Orchestrator) isRemoteTracked(streamURL string) bool {
	tracked := o.cfg.NowPlaying.TrackedHost
	if tracked == "" {
		return false
	}
	parsed, err := url.Parse(streamURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), tracked)
}

func (o *Orchestrator) handleEngineEvent(event player.Event) {
	if o.session == nil {
		return
	}
	switch event.Type {
	case player.EventConnected:
		if o.session.State == StateConnecting {
			o.session.State = StatePlaying
			o.sink.OnPlaybackStateChanged(StatePlaying)
		}
	case player.EventMetadata:
		o.coord.HandleInbandTitle(event.Title)
	case player.EventDiscontinuity:
		o.logger.Debug("stream discontinuity")
		o.coord.HandleDiscontinuity()
	}
}

func (o *Orchestrator) identify() {
	if o.session == nil {
		o.sink.OnTransientMessage("nothing is playing")
		return
	}
	if o.recognizer == nil {
		o.sink.OnTransientMessage("recognition is not configured")
		return
	}

	sessionID := o.session.ID
	streamURL := o.session.Station.StreamURL
	o.sink.OnTransientMessage("identifying...")

	go func() {
		result, err := o.recognizer.Identify(context.Background(), streamURL)
		o.post(func() { o.applyIdentification(sessionID, result, err) })
	}()
}

func (o *Orchestrator) applyIdentification(sessionID uuid.UUID, result recognition.Result, err error) {
	switch {
	case errors.Is(err, recognition.ErrInFlight):
		o.sink.OnTransientMessage("identification already running")
		return
	case errors.Is(err, recognition.ErrNoMatch):
		if o.sessionIs(sessionID) {
			o.sink.OnTransientMessage("no match found")
		}
		return
	case err != nil:
		o.logger.Error("identification failed", logging.Error(err))
		if o.sessionIs(sessionID) {
			o.sink.OnTransientMessage("identification failed")
		}
		o.notifyError("track identification failed")
		return
	}
	if !o.sessionIs(sessionID) {
		// Station changed while the capture ran; the result describes
		// audio nobody is listening to anymore.
		return
	}

	display := time.Duration(o.cfg.Recognition.DisplaySeconds) * time.Second
	if display <= 0 {
		display = 10 * time.Second
	}
	o.coord.ApplyRecognition(result.Title, result.Artist, result.ArtURL, display)

	track := IdentifiedTrack{
		Title:       result.Title,
		Artist:      result.Artist,
		ArtURL:      result.ArtURL,
		ExternalRef: result.ExternalRef,
		At:          time.Now(),
	}
	o.identified = append(o.identified, track)
	index := len(o.identified) - 1
	o.sink.OnIdentifiedTrackAdded(track)
	o.logger.Info("track identified",
		logging.String("artist", track.Artist),
		logging.String("title", track.Title))

	if o.notifier != nil {
		go o.notifier.TrackIdentified(context.Background(), track.Artist, track.Title)
	}
	if o.enricher != nil {
		o.enrich(index, track.Artist, track.Title)
	}
}

// enrich fills in the track's lookup URL after the fact; delivery of the
// identification never waits on it.
func (o *Orchestrator) enrich(index int, artist, title string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		lookupURL, err := o.enricher.RecordingURL(ctx, artist, title)
		o.post(func() {
			if err != nil {
				o.logger.Debug("enrichment lookup failed", logging.Error(err))
				return
			}
			if lookupURL == "" || index >= len(o.identified) {
				return
			}
			o.identified[index].LookupURL = lookupURL
		})
	}()
}

func (o *Orchestrator) sessionIs(id uuid.UUID) bool {
	return o.session != nil && o.session.ID == id
}

func (o *Orchestrator) stationAt(index int) (stations.Station, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	list, err := o.directory.List(ctx)
	if err != nil {
		o.logger.Error("station list unavailable", logging.Error(err))
		return stations.Station{}, false
	}
	if index < 0 || index >= len(list) {
		return stations.Station{}, false
	}
	return list[index], true
}

func (o *Orchestrator) notifyError(message string) {
	if o.notifier == nil {
		return
	}
	go o.notifier.PlaybackError(context.Background(), message)
}
