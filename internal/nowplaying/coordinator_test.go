package nowplaying_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"airwave/internal/nowplaying"
	"airwave/internal/services/azuracast"
	"airwave/internal/stations"
	"airwave/internal/testsupport"
)

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func (t *fakeTimer) fire() {
	if !t.stopped {
		t.stopped = true
		t.fn()
	}
}

type harness struct {
	t      *testing.T
	posts  chan func()
	timers []*fakeTimer
	infos  []nowplaying.Info
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, posts: make(chan func(), 64)}
}

func (h *harness) post(fn func()) {
	h.posts <- fn
}

func (h *harness) newTimer(d time.Duration, fn func()) nowplaying.Timer {
	timer := &fakeTimer{d: d, fn: fn}
	h.timers = append(h.timers, timer)
	return timer
}

// drainOne runs the next posted closure, waiting for async work to deliver.
func (h *harness) drainOne() {
	h.t.Helper()
	select {
	case fn := <-h.posts:
		fn()
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for posted work")
	}
}

func (h *harness) lastInfo() nowplaying.Info {
	h.t.Helper()
	if len(h.infos) == 0 {
		h.t.Fatal("no info emitted")
	}
	return h.infos[len(h.infos)-1]
}

// activeTimers returns unstopped timers with the given duration.
func (h *harness) activeTimers(d time.Duration) []*fakeTimer {
	var out []*fakeTimer
	for _, timer := range h.timers {
		if !timer.stopped && timer.d == d {
			out = append(out, timer)
		}
	}
	return out
}

type fakeFeed struct {
	entries []azuracast.NowPlaying
	fetches atomic.Int64
	gate    chan struct{}
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]azuracast.NowPlaying, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.entries, nil
}

type fakeArtSearch struct {
	mu      sync.Mutex
	artURL  string
	err     error
	queries []string
}

func (f *fakeArtSearch) FindArtURL(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.artURL, f.err
}

func (f *fakeArtSearch) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func trackedStation() stations.Station {
	return stations.Station{
		ID:        1,
		Name:      "Night City Radio",
		StreamURL: "https://radio.zelixo.net/listen/night_city_radio/ncradio",
		ArtURL:    "https://radio.zelixo.net/art/ncr.png",
		RemoteID:  3,
	}
}

func newCoordinator(t *testing.T, h *harness, feed nowplaying.FeedClient) *nowplaying.Coordinator {
	return newCoordinatorWithArtSearch(t, h, feed, nil)
}

func newCoordinatorWithArtSearch(t *testing.T, h *harness, feed nowplaying.FeedClient, artSearch nowplaying.ArtSearcher) *nowplaying.Coordinator {
	cfg := testsupport.NewConfig(t)
	return nowplaying.New(cfg, feed, nil, artSearch, nil, h.post, h.newTimer, nowplaying.Callbacks{
		OnInfo: func(info nowplaying.Info) { h.infos = append(h.infos, info) },
	})
}

func TestStartSessionShowsStationFallback(t *testing.T) {
	h := newHarness(t)
	coord := newCoordinator(t, h, nil)

	coord.StartSession(nowplaying.Session{
		ID:      uuid.New(),
		Station: stations.Station{Name: "Japan EDM"},
	})

	info := h.lastInfo()
	if info.Title != "Japan EDM" || info.Source != nowplaying.SourceStationFallback {
		t.Fatalf("info = %+v", info)
	}
}

func TestInbandTitleOnNonTrackedStation(t *testing.T) {
	h := newHarness(t)
	coord := newCoordinator(t, h, nil)
	coord.StartSession(nowplaying.Session{
		ID:      uuid.New(),
		Station: stations.Station{Name: "SomaFM"},
	})

	coord.HandleInbandTitle(`DJ Zel - text="Midnight Drive"`)
	info := h.lastInfo()
	if info.Title != "DJ Zel - Midnight Drive" || info.Source != nowplaying.SourceInband {
		t.Fatalf("info = %+v", info)
	}

	// Same title again is not re-emitted.
	count := len(h.infos)
	coord.HandleInbandTitle(`DJ Zel - text="Midnight Drive"`)
	if len(h.infos) != count {
		t.Fatal("duplicate title re-emitted")
	}
}

func TestInbandTitleLooksUpTrackArt(t *testing.T) {
	h := newHarness(t)
	search := &fakeArtSearch{artURL: "https://itunes.example/cover600.jpg"}
	coord := newCoordinatorWithArtSearch(t, h, nil, search)
	coord.StartSession(nowplaying.Session{
		ID:      uuid.New(),
		Station: stations.Station{Name: "SomaFM", ArtURL: "https://somafm.example/logo.png"},
	})

	coord.HandleInbandTitle("Boards of Canada - Roygbiv")
	if h.lastInfo().ArtURL != "https://somafm.example/logo.png" {
		t.Fatalf("provisional art = %q, want station art", h.lastInfo().ArtURL)
	}

	h.drainOne() // lookup result delivered
	info := h.lastInfo()
	if info.ArtURL != "https://itunes.example/cover600.jpg" {
		t.Fatalf("art after lookup = %q, want track art", info.ArtURL)
	}
	if search.lastQuery() != "Boards of Canada - Roygbiv" {
		t.Fatalf("lookup query = %q", search.lastQuery())
	}
}

func TestInbandTitleFallsBackToStationArtOnMiss(t *testing.T) {
	h := newHarness(t)
	search := &fakeArtSearch{}
	coord := newCoordinatorWithArtSearch(t, h, nil, search)
	coord.StartSession(nowplaying.Session{
		ID:      uuid.New(),
		Station: stations.Station{Name: "SomaFM", ArtURL: "https://somafm.example/logo.png"},
	})

	coord.HandleInbandTitle("Obscure Artist - Unreleased Demo")
	count := len(h.infos)
	h.drainOne()
	if h.lastInfo().ArtURL != "https://somafm.example/logo.png" {
		t.Fatalf("art after miss = %q, want station art", h.lastInfo().ArtURL)
	}
	if len(h.infos) != count {
		t.Fatal("fallback to unchanged art re-emitted info")
	}
}

func TestInbandTitleIgnoredOnRemoteTrackedStation(t *testing.T) {
	h := newHarness(t)
	feed := &fakeFeed{}
	coord := newCoordinator(t, h, feed)
	coord.StartSession(nowplaying.Session{
		ID:            uuid.New(),
		Station:       trackedStation(),
		RemoteTracked: true,
	})
	h.drainOne() // initial feed result

	count := len(h.infos)
	coord.HandleInbandTitle("Should Be Ignored")
	if len(h.infos) != count {
		t.Fatalf("in-band title applied on remote-tracked station: %+v", h.lastInfo())
	}
}

func TestRemoteFeedMatchesByRemoteID(t *testing.T) {
	h := newHarness(t)
	feed := &fakeFeed{entries: []azuracast.NowPlaying{
		{StationID: 9, StationName: "Other", Title: "Wrong - Song"},
		{StationID: 3, StationName: "Night City Radio", Title: "Artist - Track", ArtURL: "https://cdn.example/a.png"},
	}}
	coord := newCoordinator(t, h, feed)
	coord.StartSession(nowplaying.Session{
		ID:            uuid.New(),
		Station:       trackedStation(),
		RemoteTracked: true,
	})

	h.drainOne()
	info := h.lastInfo()
	if info.Title != "Artist - Track" || info.Source != nowplaying.SourceRemote {
		t.Fatalf("info = %+v", info)
	}
	if info.ArtURL != "https://cdn.example/a.png" {
		t.Fatalf("art url = %q", info.ArtURL)
	}

	// A recurring poll is scheduled and fetches again when it fires.
	polls := h.activeTimers(5 * time.Second)
	if len(polls) != 1 {
		t.Fatalf("active poll timers = %d, want 1", len(polls))
	}
	before := feed.fetches.Load()
	polls[0].fire()
	h.drainOne()
	if feed.fetches.Load() != before+1 {
		t.Fatalf("poll timer did not fetch: %d -> %d", before, feed.fetches.Load())
	}
}

func TestDiscontinuityDebouncesToOnePoll(t *testing.T) {
	h := newHarness(t)
	feed := &fakeFeed{entries: []azuracast.NowPlaying{
		{StationID: 3, Title: "Artist - Track"},
	}}
	coord := newCoordinator(t, h, feed)
	coord.StartSession(nowplaying.Session{
		ID:            uuid.New(),
		Station:       trackedStation(),
		RemoteTracked: true,
	})
	h.drainOne()
	before := feed.fetches.Load()

	coord.HandleDiscontinuity()
	coord.HandleDiscontinuity()

	active := h.activeTimers(2 * time.Second)
	if len(active) != 1 {
		t.Fatalf("active debounce timers = %d, want 1 (first must be cancelled)", len(active))
	}
	active[0].fire()
	h.drainOne()
	if got := feed.fetches.Load(); got != before+1 {
		t.Fatalf("fetches after debounce = %d, want exactly one more than %d", got, before)
	}
}

func TestForcedRefreshRunsAfterInFlightPoll(t *testing.T) {
	h := newHarness(t)
	feed := &fakeFeed{
		entries: []azuracast.NowPlaying{{StationID: 3, Title: "Artist - Track"}},
		gate:    make(chan struct{}),
	}
	coord := newCoordinator(t, h, feed)
	coord.StartSession(nowplaying.Session{
		ID:            uuid.New(),
		Station:       trackedStation(),
		RemoteTracked: true,
	})

	// The initial fetch is still blocked when the debounce fires; the
	// forced refresh must run once it completes instead of being dropped.
	coord.HandleDiscontinuity()
	debounces := h.activeTimers(2 * time.Second)
	if len(debounces) != 1 {
		t.Fatalf("debounce timers = %d, want 1", len(debounces))
	}
	debounces[0].fire()
	if got := feed.fetches.Load(); got != 1 {
		t.Fatalf("fetches while blocked = %d, want 1", got)
	}

	close(feed.gate)
	h.drainOne() // initial fetch completes, rerunning the refresh
	h.drainOne() // forced refresh completes
	if got := feed.fetches.Load(); got != 2 {
		t.Fatalf("fetches after completion = %d, want 2", got)
	}
}

func TestRecognitionOverrideAndRevert(t *testing.T) {
	h := newHarness(t)
	coord := newCoordinator(t, h, nil)
	coord.StartSession(nowplaying.Session{
		ID:      uuid.New(),
		Station: stations.Station{Name: "SomaFM"},
	})
	coord.HandleInbandTitle("Live Artist - Live Song")

	coord.ApplyRecognition("Resonance", "HOME", "https://cdn.example/r.jpg", 10*time.Second)
	info := h.lastInfo()
	if info.Source != nowplaying.SourceRecognition || info.Title != "Resonance" || info.Artist != "HOME" {
		t.Fatalf("override info = %+v", info)
	}

	// Live updates during the override do not change the display.
	count := len(h.infos)
	coord.HandleInbandTitle("Next Artist - Next Song")
	if len(h.infos) != count {
		t.Fatal("live update emitted while override active")
	}

	reverts := h.activeTimers(10 * time.Second)
	if len(reverts) != 1 {
		t.Fatalf("revert timers = %d, want 1", len(reverts))
	}
	reverts[0].fire()
	info = h.lastInfo()
	if info.Source != nowplaying.SourceInband || info.Title != "Next Artist - Next Song" {
		t.Fatalf("reverted info = %+v", info)
	}
}

func TestStaleFeedResultDroppedAfterStop(t *testing.T) {
	h := newHarness(t)
	feed := &fakeFeed{
		entries: []azuracast.NowPlaying{{StationID: 3, Title: "Artist - Track"}},
		gate:    make(chan struct{}),
	}
	coord := newCoordinator(t, h, feed)
	coord.StartSession(nowplaying.Session{
		ID:            uuid.New(),
		Station:       trackedStation(),
		RemoteTracked: true,
	})

	count := len(h.infos)
	coord.StopSession()
	close(feed.gate)
	h.drainOne()
	for _, info := range h.infos[count:] {
		if info.Source == nowplaying.SourceRemote {
			t.Fatalf("stale feed result applied after stop: %+v", info)
		}
	}
	if coord.Current().Source == nowplaying.SourceRemote {
		t.Fatal("stale result mutated state")
	}
}
