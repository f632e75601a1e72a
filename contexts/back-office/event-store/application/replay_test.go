package application_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"kasir/contexts/back-office/event-store/application"
	"kasir/contexts/back-office/event-store/domain/entities"
)

type orderState struct {
	Total float64
}

func sumPrices(state orderState, event entities.StoredEvent) (orderState, error) {
	if price, ok := event.EventData["price"].(float64); ok {
		state.Total += price
	}
	return state, nil
}

func TestReplayFoldsOrderTotals(t *testing.T) {
	store, _ := newTestStore()

	seed := []entities.Envelope{
		envelope("order-123", "Order", "OrderCreated", map[string]any{"total": 0}),
		envelope("order-123", "Order", "ItemAdded", map[string]any{"price": 25000}),
		envelope("order-123", "Order", "ItemAdded", map[string]any{"price": 15000}),
	}
	for _, env := range seed {
		if _, err := store.Append(context.Background(), env); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	result, err := application.Replay(context.Background(), store, "order-123", "Order", orderState{}, sumPrices)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if result.Version != 3 {
		t.Fatalf("expected version 3, got %d", result.Version)
	}
	if result.State.Total != 40000 {
		t.Fatalf("expected total 40000, got %v", result.State.Total)
	}
	if result.AggregateID != "order-123" {
		t.Fatalf("unexpected aggregate id %q", result.AggregateID)
	}
}

func TestReplayEmptyAggregate(t *testing.T) {
	store, _ := newTestStore()

	result, err := application.Replay(context.Background(), store, "empty-123", "Order", orderState{Total: 0}, sumPrices)
	if err != nil {
		t.Fatalf("replay of empty history must not fail: %v", err)
	}
	if result.Version != 0 {
		t.Fatalf("expected version 0 for empty history, got %d", result.Version)
	}
	if result.State.Total != 0 {
		t.Fatalf("expected initial state unchanged, got %v", result.State.Total)
	}
}

func TestReplayReducerErrorAborts(t *testing.T) {
	store, _ := newTestStore()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(context.Background(), envelope("order-123", "Order", "ItemAdded", map[string]any{"price": 100})); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	errBadPayload := errors.New("bad payload")
	calls := 0
	_, err := application.Replay(context.Background(), store, "order-123", "Order", orderState{},
		func(state orderState, event entities.StoredEvent) (orderState, error) {
			calls++
			if event.Version == 2 {
				return orderState{}, errBadPayload
			}
			return state, nil
		})
	if !errors.Is(err, errBadPayload) {
		t.Fatalf("expected reducer error to propagate, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected fold to abort at the failing event, reducer ran %d times", calls)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	store, _ := newTestStore()

	seed := []entities.Envelope{
		envelope("order-123", "Order", "OrderCreated", map[string]any{"total": 0}),
		envelope("order-123", "Order", "ItemAdded", map[string]any{"price": 25000}),
	}
	for _, env := range seed {
		if _, err := store.Append(context.Background(), env); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	first, err := application.Replay(context.Background(), store, "order-123", "Order", orderState{}, sumPrices)
	if err != nil {
		t.Fatalf("first replay failed: %v", err)
	}
	second, err := application.Replay(context.Background(), store, "order-123", "Order", orderState{}, sumPrices)
	if err != nil {
		t.Fatalf("second replay failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical replay results, got %+v and %+v", first, second)
	}
}

func TestReplayMatchesManualFold(t *testing.T) {
	store, _ := newTestStore()

	for i := 0; i < 4; i++ {
		if _, err := store.Append(context.Background(), envelope("order-42", "Order", "ItemAdded", map[string]any{"price": 5000})); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	events, err := store.GetEvents(context.Background(), "order-42", "Order")
	if err != nil {
		t.Fatalf("get events failed: %v", err)
	}
	manual := orderState{}
	for _, event := range events {
		manual, err = sumPrices(manual, event)
		if err != nil {
			t.Fatalf("manual fold failed: %v", err)
		}
	}

	result, err := application.Replay(context.Background(), store, "order-42", "Order", orderState{}, sumPrices)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if result.State != manual {
		t.Fatalf("replay state %+v diverges from manual fold %+v", result.State, manual)
	}
	if result.Version != events[len(events)-1].Version {
		t.Fatalf("replay version %d diverges from last event version %d", result.Version, events[len(events)-1].Version)
	}
}
