package eventstream

import "context"

// Publisher publishes call events to an event stream backend.
type Publisher interface {
	PublishCall(ctx context.Context, event *CallEvent) error
	Close() error
}
