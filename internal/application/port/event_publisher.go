package port

import "context"

// EventPublisher pushes capture lifecycle events to a message broker.
// Publishing is advisory: a broker failure never fails a capture.
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	Close() error
}
