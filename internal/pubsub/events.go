// Package pubsub is a small generic in-process event broker.
package pubsub

// EventType identifies what happened to a payload.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event wraps a payload emitted by the broker.
type Event[T any] struct {
	Type    EventType `json:"type"`
	Payload T         `json:"payload"`
}
