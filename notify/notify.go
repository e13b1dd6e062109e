// Package notify houses core.Notifier implementations. Notifications are
// fire-and-forget: the engine publishes and moves on, so every sink here is
// non-blocking.
package notify

import (
	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/logging"
)

// LogNotifier writes each notification to a structured logger.
type LogNotifier struct {
	logger logging.Logger
}

var _ core.Notifier = (*LogNotifier)(nil)

// NewLogNotifier builds a notifier over the given logger.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Notify implements core.Notifier.
func (n *LogNotifier) Notify(ev core.Notification) {
	n.logger.Info("notification",
		"kind", string(ev.Kind),
		"transaction", ev.TransactionID,
		"phase", ev.Phase.String(),
		"status", string(ev.Status),
		"reason", ev.Reason,
	)
}

// ChannelNotifier forwards notifications to a channel for asynchronous
// consumers. When the channel is full the notification is dropped rather
// than blocking the engine.
type ChannelNotifier struct {
	ch chan core.Notification
}

var _ core.Notifier = (*ChannelNotifier)(nil)

// NewChannelNotifier creates a notifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelNotifier{ch: make(chan core.Notification, buffer)}
}

// Notify implements core.Notifier without ever blocking.
func (n *ChannelNotifier) Notify(ev core.Notification) {
	select {
	case n.ch <- ev:
	default:
	}
}

// Events exposes the consumer side of the channel.
func (n *ChannelNotifier) Events() <-chan core.Notification { return n.ch }
