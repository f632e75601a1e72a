package application

import (
	"context"
	"fmt"

	"kasir/contexts/back-office/event-store/domain/entities"
)

// Reducer is a pure fold function: given the current state and the next
// stored event it returns the next state. It must not mutate either argument
// in place and must not capture mutable state or perform I/O — the fold is
// defined entirely by the returned value.
type Reducer[S any] func(state S, event entities.StoredEvent) (S, error)

// ReplayResult carries the reconstructed state of an aggregate. Version is
// the last event's version, or 0 when the aggregate has no history.
type ReplayResult[S any] struct {
	AggregateID string
	Version     int64
	State       S
}

// EventHistory is the read surface Replay folds over. *Store and its
// decorators satisfy it.
type EventHistory interface {
	GetEvents(ctx context.Context, aggregateID string, aggregateType string) ([]entities.StoredEvent, error)
}

// Replay reconstructs aggregate state by folding reduce over the aggregate's
// ordered history, starting from initial. It is a pure read: given the same
// history, reducer, and initial state, two calls yield identical results.
// A reducer error aborts the fold immediately; no partial state is returned.
func Replay[S any](ctx context.Context, history EventHistory, aggregateID string, aggregateType string, initial S, reduce Reducer[S]) (ReplayResult[S], error) {
	events, err := history.GetEvents(ctx, aggregateID, aggregateType)
	if err != nil {
		return ReplayResult[S]{}, err
	}

	state := initial
	for _, event := range events {
		state, err = reduce(state, event)
		if err != nil {
			return ReplayResult[S]{}, fmt.Errorf("reduce %s event at version %d: %w", event.EventType, event.Version, err)
		}
	}

	result := ReplayResult[S]{AggregateID: aggregateID, State: state}
	if len(events) > 0 {
		result.Version = events[len(events)-1].Version
	}
	return result, nil
}
