package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging messages instead of pushing
// them. Dry runs use it in place of the ntfy publisher.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that logs messages instead of sending.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Publish logs a message without sending it.
func (n *NoOpNotifier) Publish(_ context.Context, msg Message) error {
	n.log.Info("dry run: notification not sent",
		"title", msg.Title,
		"body", msg.Body,
	)
	return nil
}
