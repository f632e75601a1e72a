package eventstore_test

import (
	"context"
	"testing"

	eventstore "kasir/contexts/back-office/event-store"
	"kasir/contexts/back-office/event-store/adapters/memory"
	"kasir/contexts/back-office/event-store/application"
	"kasir/contexts/back-office/event-store/domain/entities"
)

func TestInMemoryModuleAppendAndReplay(t *testing.T) {
	module := eventstore.NewInMemoryModule(nil)

	seed := []entities.Envelope{
		{TenantID: "outlet-1", AggregateID: "order-123", AggregateType: "Order", EventType: "OrderCreated", EventData: map[string]any{"total": 0}},
		{TenantID: "outlet-1", AggregateID: "order-123", AggregateType: "Order", EventType: "ItemAdded", EventData: map[string]any{"price": 25000}},
		{TenantID: "outlet-1", AggregateID: "order-123", AggregateType: "Order", EventType: "ItemAdded", EventData: map[string]any{"price": 15000}},
	}
	for _, env := range seed {
		if _, err := module.Store.Append(context.Background(), env); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	result, err := application.Replay(context.Background(), module.Store, "order-123", "Order", map[string]float64{"total": 0},
		func(state map[string]float64, event entities.StoredEvent) (map[string]float64, error) {
			next := map[string]float64{"total": state["total"]}
			if price, ok := event.EventData["price"].(float64); ok {
				next["total"] += price
			}
			return next, nil
		})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if result.Version != 3 {
		t.Fatalf("expected version 3, got %d", result.Version)
	}
	if result.State["total"] != 40000 {
		t.Fatalf("expected total 40000, got %v", result.State["total"])
	}
}

func TestTracedModuleKeepsSemantics(t *testing.T) {
	module := eventstore.NewModule(eventstore.Dependencies{Journal: memory.NewJournal(), Tracing: true})

	event, err := module.Store.Append(context.Background(), entities.Envelope{
		AggregateID:   "order-9",
		AggregateType: "Order",
		EventType:     "OrderCreated",
		EventData:     map[string]any{},
	})
	if err != nil {
		t.Fatalf("append via traced store failed: %v", err)
	}
	if event.Version != 1 {
		t.Fatalf("expected version 1, got %d", event.Version)
	}

	events, err := module.Store.GetEvents(context.Background(), "order-9", "Order")
	if err != nil {
		t.Fatalf("get events via traced store failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
}
