package app

import (
	"context"
	"log/slog"
)

// eventSink publishes to one exchange and logs failures instead of returning them.
type eventSink struct {
	publisher EventPublisher
	exchange  string
	logger    *slog.Logger
}

func (s eventSink) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}
