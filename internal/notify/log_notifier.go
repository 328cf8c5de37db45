package notify

import (
	"context"

	"github.com/matchday-app/chat-service/pkg/log"
)

// LogNotifier only logs notifications. Used in development and when no
// broker is configured.
type LogNotifier struct{}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	log.Ctx(ctx).Info().
		Str("recipient", notification.Recipient).
		Str("notification_type", notification.Type).
		Str("title", notification.Title).
		Msg("notification (log only)")
	return nil
}

func (n *LogNotifier) Close() error { return nil }
