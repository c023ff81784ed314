// Package notify defines the push notification interface and implementations
// for seat-opening delivery.
package notify

import "context"

// Priority levels understood by the push relay.
const (
	PriorityLow     = "low"
	PriorityDefault = "default"
	PriorityHigh    = "high"
)

// Message is one push notification.
type Message struct {
	Title    string
	Body     string
	Priority string // empty falls back to PriorityDefault
}

// Notifier defines the interface for delivering push notifications.
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
}
