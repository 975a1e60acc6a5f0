// Package publisher defines the outbound message boundary used to announce
// finished pipeline runs.
package publisher

import "context"

// Publisher sends a payload to a named topic and returns the broker message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
