package main

import (
	"log/slog"
	"time"

	"airwave/internal/artwork"
	"airwave/internal/config"
	"airwave/internal/daemon"
	"airwave/internal/deps"
	"airwave/internal/logging"
	"airwave/internal/notifications"
	"airwave/internal/player"
	"airwave/internal/radio"
	"airwave/internal/recognition"
	"airwave/internal/services/artsearch"
	"airwave/internal/services/azuracast"
	"airwave/internal/services/musicbrainz"
	"airwave/internal/stations"
)

// reportDependencies logs the availability of optional external tooling so a
// missing binary is diagnosed at startup rather than on first identify.
func reportDependencies(cfg *config.Config, logger *slog.Logger) {
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if status.Available {
			logger.Debug("external tool available", logging.String("tool", status.Name))
			continue
		}
		logger.Warn("external tool unavailable",
			logging.String("tool", status.Name),
			logging.String("detail", status.Detail),
			logging.String("purpose", status.Description))
	}
}

// buildOrchestrator assembles the playback orchestrator. Feed, recognition
// and enrichment are optional collaborators; the orchestrator degrades to
// in-band metadata only when they are absent.
func buildOrchestrator(cfg *config.Config, store *stations.Store, engine *player.Engine, logger *slog.Logger) (*radio.Orchestrator, error) {
	resolver, err := artwork.NewResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := radio.Options{
		Config:    cfg,
		Engine:    engine,
		Directory: store,
		Sink: radio.FanoutSink{
			radio.NewLogSink(logger),
			radio.NewFileSink(cfg.NowPlayingFilePath(), logger),
		},
		Resolver:  resolver,
		ArtSearch: artsearch.New(time.Duration(cfg.Artwork.FetchTimeout) * time.Second),
		Enricher:  musicbrainz.New(10 * time.Second),
		Notifier:  daemon.NewNotifier(notifications.NewService(cfg), logger),
		Logger:    logger,
	}

	if cfg.NowPlaying.RemoteAPIURL != "" {
		feed, err := azuracast.New(cfg.NowPlaying.RemoteAPIURL, time.Duration(cfg.NowPlaying.RequestTimeout)*time.Second)
		if err != nil {
			return nil, err
		}
		opts.Feed = feed
	}

	if pipeline, err := recognition.New(cfg, logger); err != nil {
		logger.Warn("track identification disabled", logging.Error(err))
	} else {
		opts.Recognizer = pipeline
	}

	return radio.New(opts)
}
