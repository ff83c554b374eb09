package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"airwave/internal/config"
	"airwave/internal/daemon"
	"airwave/internal/logging"
	"airwave/internal/player"
	"airwave/internal/stations"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	reportDependencies(cfg, logger)

	store, err := stations.Open(cfg)
	if err != nil {
		log.Fatalf("open station store: %v", err)
	}

	engine, err := player.New(cfg, logger)
	if err != nil {
		log.Fatalf("init audio output: %v", err)
	}
	defer engine.Close()

	orch, err := buildOrchestrator(cfg, store, engine, logger)
	if err != nil {
		log.Fatalf("build orchestrator: %v", err)
	}

	d, err := daemon.New(cfg, store, orch, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("airwaved shutting down")
	d.Stop()
}
