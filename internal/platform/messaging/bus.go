package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"kasir/contexts/back-office/event-store/domain/entities"
)

// ErrSubscriberBacklog reports a subscriber whose buffer is full at publish
// time. The event is not delivered to that subscriber; the publisher is
// expected to retry the publish.
var ErrSubscriberBacklog = errors.New("subscriber buffer full")

const subscriberBuffer = 128

// Bus is the in-process publish/subscribe fabric between the projection
// worker and back-office consumers. It keeps the EventPublisher port
// satisfied while runtime wiring for an external broker is finalized.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan entities.StoredEvent
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan entities.StoredEvent),
		logger:      logger,
	}
}

// Publish delivers the event to every subscriber of the topic. A subscriber
// whose buffer is full fails the publish with ErrSubscriberBacklog so the
// caller can retry; events are never dropped silently.
func (b *Bus) Publish(ctx context.Context, topic string, event entities.StoredEvent) error {
	b.mu.RLock()
	subs := append([]chan entities.StoredEvent(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("subscriber buffer full, publish rejected",
					"event", "bus_publish_backlog",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_id", event.ID,
				)
			}
			return fmt.Errorf("publish to %s: %w", topic, ErrSubscriberBacklog)
		}
	}

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "bus_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.ID,
			"event_type", event.EventType,
			"aggregate_id", event.AggregateID,
		)
	}
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, entities.StoredEvent) error,
) error {
	ch := make(chan entities.StoredEvent, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.ID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) removeSubscriber(topic string, target chan entities.StoredEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan entities.StoredEvent, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
