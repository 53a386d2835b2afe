package transport

import (
	"context"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// Sender delivers one batch. Errors wrapped with Permanent are not retried.
type Sender interface {
	Send(ctx context.Context, entries []logentry.Entry) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, entries []logentry.Entry) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, entries []logentry.Entry) error {
	return f(ctx, entries)
}

// NopSender accepts and discards every batch.
type NopSender struct{}

// Send does nothing.
func (NopSender) Send(context.Context, []logentry.Entry) error {
	return nil
}

// shutdowner is implemented by senders holding resources.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}
