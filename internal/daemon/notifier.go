package daemon

import (
	"context"
	"errors"
	"log/slog"

	"airwave/internal/logging"
	"airwave/internal/notifications"
	"airwave/internal/radio"
)

// NewNotifier adapts the push-notification service to the orchestrator's
// notifier interface. Delivery failures are logged, never propagated.
func NewNotifier(svc notifications.Service, logger *slog.Logger) radio.Notifier {
	return &serviceNotifier{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

type serviceNotifier struct {
	svc    notifications.Service
	logger *slog.Logger
}

func (n *serviceNotifier) TrackIdentified(ctx context.Context, artist, title string) {
	if err := n.svc.NotifyTrackIdentified(ctx, artist, title); err != nil {
		n.logger.Warn("track notification failed", logging.Error(err))
	}
}

func (n *serviceNotifier) PlaybackError(ctx context.Context, message string) {
	if err := n.svc.NotifyError(ctx, errors.New(message), "playback"); err != nil {
		n.logger.Warn("error notification failed", logging.Error(err))
	}
}
