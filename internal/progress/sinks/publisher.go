package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/progress"
	"github.com/EmnaWalha99/Job-Portal/internal/publisher"
)

// PublisherSink publishes the summary payload of every RUN_DONE event to a
// topic. Other events are ignored.
type PublisherSink struct {
	pub    publisher.Publisher
	topic  string
	logger *zap.Logger
}

// NewPublisherSink constructs a PublisherSink.
func NewPublisherSink(pub publisher.Publisher, topic string, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{pub: pub, topic: topic, logger: logger}
}

// Consume publishes run summaries. The first publish error is returned.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.pub == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Kind != progress.KindRunDone || len(evt.Payload) == 0 {
			continue
		}
		id, err := s.pub.Publish(ctx, s.topic, evt.Payload)
		if err != nil {
			return fmt.Errorf("publish run summary %s: %w", evt.RunID, err)
		}
		s.logger.Debug("run summary published",
			zap.String("run_id", evt.RunID.String()),
			zap.String("topic", s.topic),
			zap.String("message_id", id),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
