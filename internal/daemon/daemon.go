package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"airwave/internal/config"
	"airwave/internal/ipc"
	"airwave/internal/logging"
	"airwave/internal/radio"
	"airwave/internal/stations"
)

// Daemon ties the orchestrator, control socket and station store together
// and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *stations.Store
	orch   *radio.Orchestrator
	server *ipc.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	SocketPath    string
	LockFilePath  string
	StationDBPath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *stations.Store, orch *radio.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and logger")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, opens the control socket and launches the
// orchestrator loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airwave daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	server, err := ipc.NewServer(runCtx, d.cfg.SocketPath(), d.orch.HandleToken, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start control socket: %w", err)
	}

	d.cancel = cancel
	d.server = server
	d.done = make(chan struct{})

	server.Serve()
	go func() {
		defer close(d.done)
		d.orch.Run(runCtx)
	}()
	d.orch.Start()

	d.running.Store(true)
	d.logger.Info("airwave daemon started",
		logging.String("socket", d.cfg.SocketPath()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop tears the daemon down and releases the lock. Safe to call more than
// once.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("airwave daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		SocketPath:    d.cfg.SocketPath(),
		LockFilePath:  d.lockPath,
		StationDBPath: d.cfg.StationDBPath(),
	}
}
