package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrSimulatedFailure = errors.New("provider down (simulated)")

// LogTransport writes messages to the log instead of sending them. Used in
// dev and whenever no SMTP credentials are configured.
type LogTransport struct {
	log *slog.Logger

	// Delay and Fail simulate a slow or broken provider.
	Delay time.Duration
	Fail  bool
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if t.Fail {
		return ErrSimulatedFailure
	}

	t.log.InfoContext(ctx, "mail.logged",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template,
		"body", msg.Text,
	)
	return nil
}
