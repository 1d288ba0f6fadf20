package events

import (
	"context"
)

// Publisher sends events to a topic exchange. The watcher publishes every
// contract event through it.
type Publisher interface {
	Publish(ctx context.Context, exchange string, event *Event, headers Headers) error
	Close() error
}
