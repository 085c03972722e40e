package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogTransport records message metadata instead of sending mail. The body is
// not logged.
type LogTransport struct {
	Logger zerolog.Logger
}

// Deliver logs msg and always succeeds.
func (t LogTransport) Deliver(_ context.Context, msg Message) error {
	t.Logger.Info().
		Str("message_id", msg.ID).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.HTML)).
		Msg("mail delivery skipped (log transport)")
	return nil
}
