// Package notify delivers short-lived user-facing messages to the dashboard.
// Delivery is fire-and-forget: a failed notification never affects scan
// outcome. Messages are expected to auto-dismiss after DisplayTTLSeconds.
package notify

import "context"

// DisplayTTLSeconds is the implied display window before a notification
// auto-dismisses.
const DisplayTTLSeconds = 5

// Notifier is the sink boundary consumed by presentation.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Multi fans one notification out to several sinks. Errors from individual
// sinks are dropped; the first error is returned for logging.
type Multi []Notifier

// Notify implements Notifier across all configured sinks.
func (m Multi) Notify(ctx context.Context, message string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
