package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to the structured log instead of sending them.
// Used when no mail transport is configured.
type Log struct{}

// Send logs the message
func (Log) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "Notification (not sent)",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.HTML),
	)
	return nil
}
