package workers

import (
	"context"
	"log/slog"
	"time"

	application "kasir/contexts/back-office/event-store/application"
	"kasir/contexts/back-office/event-store/ports"
)

// Projector drains newly stored events for the configured event types and
// publishes them to per-type topics for cross-aggregate consumers. Delivery
// is at-least-once; the cursor tracks CreatedAt per event type with the ids
// seen at the cursor boundary, since the journal's Since filter is inclusive.
type Projector struct {
	Store      ports.EventStore
	Publisher  ports.EventPublisher
	EventTypes []string
	Logger     *slog.Logger

	cursors map[string]*cursorState
}

type cursorState struct {
	since time.Time
	seen  map[string]struct{}
}

func (p *Projector) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(p.Logger)
	if p.cursors == nil {
		p.cursors = make(map[string]*cursorState, len(p.EventTypes))
	}

	for _, eventType := range p.EventTypes {
		state, ok := p.cursors[eventType]
		if !ok {
			state = &cursorState{seen: make(map[string]struct{})}
			p.cursors[eventType] = state
		}

		var since *time.Time
		if !state.since.IsZero() {
			cursor := state.since
			since = &cursor
		}

		events, err := p.Store.GetEventsByType(ctx, eventType, since)
		if err != nil {
			logger.Error("projection drain failed",
				"event", "projection_drain_failed",
				"module", "back-office/event-store",
				"layer", "worker",
				"event_type", eventType,
				"error", err.Error(),
			)
			return err
		}

		published := 0
		for _, event := range events {
			if _, done := state.seen[event.ID]; done {
				continue
			}
			if err := p.Publisher.Publish(ctx, eventType, event); err != nil {
				logger.Error("projection publish failed",
					"event", "projection_publish_failed",
					"module", "back-office/event-store",
					"layer", "worker",
					"event_type", eventType,
					"event_id", event.ID,
					"aggregate_id", event.AggregateID,
					"error", err.Error(),
				)
				return err
			}
			if event.CreatedAt.After(state.since) {
				state.since = event.CreatedAt
				state.seen = make(map[string]struct{})
			}
			state.seen[event.ID] = struct{}{}
			published++
		}

		if published > 0 {
			logger.Info("projection drained",
				"event", "projection_drained",
				"module", "back-office/event-store",
				"layer", "worker",
				"event_type", eventType,
				"published", published,
			)
		}
	}
	return nil
}
