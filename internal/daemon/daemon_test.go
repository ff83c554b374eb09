package daemon_test

import (
	"context"
	"os"
	"testing"
	"time"

	"airwave/internal/config"
	"airwave/internal/daemon"
	"airwave/internal/ipc"
	"airwave/internal/logging"
	"airwave/internal/player"
	"airwave/internal/radio"
	"airwave/internal/testsupport"
)

type idleEngine struct {
	events chan player.Event
}

func newIdleEngine() *idleEngine {
	return &idleEngine{events: make(chan player.Event, 8)}
}

func (e *idleEngine) Play(string) error           { return nil }
func (e *idleEngine) Stop()                       {}
func (e *idleEngine) TogglePause() bool           { return false }
func (e *idleEngine) Events() <-chan player.Event { return e.events }

func newTestDaemon(t *testing.T) (*daemon.Daemon, *radio.Orchestrator) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return newDaemonWithConfig(t, cfg)
}

func newDaemonWithConfig(t *testing.T, cfg *config.Config) (*daemon.Daemon, *radio.Orchestrator) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)

	orch, err := radio.New(radio.Options{
		Config:    cfg,
		Engine:    newIdleEngine(),
		Directory: store,
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("build orchestrator: %v", err)
	}

	d, err := daemon.New(cfg, store, orch, logging.NewNop())
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, orch
}

func TestDaemonStartStopLifecycle(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if _, err := os.Stat(status.SocketPath); err != nil {
		t.Fatalf("expected control socket at %s: %v", status.SocketPath, err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
	if _, err := os.Stat(status.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, got %v", err)
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	first, _ := newDaemonWithConfig(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}

	second, _ := newDaemonWithConfig(t, cfg)
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention to reject the second instance")
	}
}

func TestDaemonDispatchesControlTokens(t *testing.T) {
	d, orch := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}

	// Start already tunes the first station; next-station must advance it.
	initial, ok := orch.CurrentSession()
	if !ok {
		t.Fatal("expected a session after start")
	}

	if err := ipc.Send(d.Status().SocketPath, ipc.TokenNextStation); err != nil {
		t.Fatalf("send control token: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		current, ok := orch.CurrentSession()
		if ok && current.Station.ID != initial.Station.ID {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("station did not change, still %q", current.Station.Name)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
