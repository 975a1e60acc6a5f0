// Package memory contains an in-memory publisher used by tests and local runs
// without a broker. Payloads are encoded the way the Pub/Sub publisher encodes
// them, so subscribers' decoding can be exercised without GCP.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Message is one recorded publish.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher keeps every message in publish order.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes payload (JSON unless it is already []byte) and records it.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	if topic == "" {
		return "", errors.New("topic is required")
	}
	data, ok := payload.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: append([]byte(nil), data...)})
	return id, nil
}

// Topic returns the encoded payloads published to topic, oldest first.
func (p *Publisher) Topic(topic string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out [][]byte
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m.Data)
		}
	}
	return out
}

// Messages returns a copy of every recorded message.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
