package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers an alert message. recipient overrides the channel's
// configured destination (a webhook URL for Slack, a chat id for
// Telegram); pass "" to use the default.
type Notifier interface {
	Send(ctx context.Context, recipient, title, text string) error
}

// Multi fans a message out to every channel and reports all failures,
// not just the first.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, recipient, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, recipient, title, text))
	}
	return errs
}
