package workers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kasir/contexts/back-office/event-store/adapters/memory"
	"kasir/contexts/back-office/event-store/application"
	"kasir/contexts/back-office/event-store/application/workers"
	"kasir/contexts/back-office/event-store/domain/entities"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []entities.StoredEvent
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event entities.StoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []entities.StoredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entities.StoredEvent(nil), p.events...)
}

func TestProjectorPublishesOnceAndAdvances(t *testing.T) {
	journal := memory.NewJournal()
	current := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	journal.SetNow(func() time.Time { return current })

	store := application.NewStore(journal, nil)
	publisher := &capturingPublisher{}
	projector := &workers.Projector{
		Store:      store,
		Publisher:  publisher,
		EventTypes: []string{"OrderCreated"},
	}

	appendOrder := func(aggregateID string) {
		t.Helper()
		_, err := store.Append(context.Background(), entities.Envelope{
			AggregateID:   aggregateID,
			AggregateType: "Order",
			EventType:     "OrderCreated",
			EventData:     map[string]any{},
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		current = current.Add(time.Second)
	}

	appendOrder("order-1")
	appendOrder("order-2")

	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if got := len(publisher.published()); got != 2 {
		t.Fatalf("expected 2 published events, got %d", got)
	}

	// A second pass over an unchanged journal must not republish.
	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if got := len(publisher.published()); got != 2 {
		t.Fatalf("expected no duplicates, got %d", got)
	}

	appendOrder("order-3")
	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	published := publisher.published()
	if len(published) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(published))
	}
	if published[2].AggregateID != "order-3" {
		t.Fatalf("expected the new event last, got aggregate %s", published[2].AggregateID)
	}
}

type flakyPublisher struct {
	capturingPublisher
	failures int
}

func (p *flakyPublisher) Publish(ctx context.Context, topic string, event entities.StoredEvent) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("subscriber buffer full")
	}
	return p.capturingPublisher.Publish(ctx, topic, event)
}

func TestProjectorRetriesAfterPublishFailure(t *testing.T) {
	journal := memory.NewJournal()
	store := application.NewStore(journal, nil)
	publisher := &flakyPublisher{failures: 1}
	projector := &workers.Projector{
		Store:      store,
		Publisher:  publisher,
		EventTypes: []string{"OrderCreated"},
	}

	_, err := store.Append(context.Background(), entities.Envelope{
		AggregateID:   "order-1",
		AggregateType: "Order",
		EventType:     "OrderCreated",
		EventData:     map[string]any{},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := projector.RunOnce(context.Background()); err == nil {
		t.Fatal("expected run to surface the publish failure")
	}
	if got := len(publisher.published()); got != 0 {
		t.Fatalf("expected no delivery on the failed run, got %d", got)
	}

	// The cursor must not have advanced past the failed event.
	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	published := publisher.published()
	if len(published) != 1 {
		t.Fatalf("expected the event delivered on retry, got %d", len(published))
	}
	if published[0].AggregateID != "order-1" {
		t.Fatalf("expected aggregate order-1, got %s", published[0].AggregateID)
	}

	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("follow-up run failed: %v", err)
	}
	if got := len(publisher.published()); got != 1 {
		t.Fatalf("expected no duplicates after retry, got %d", got)
	}
}

func TestProjectorIgnoresOtherEventTypes(t *testing.T) {
	journal := memory.NewJournal()
	store := application.NewStore(journal, nil)
	publisher := &capturingPublisher{}
	projector := &workers.Projector{
		Store:      store,
		Publisher:  publisher,
		EventTypes: []string{"ShiftClosed"},
	}

	_, err := store.Append(context.Background(), entities.Envelope{
		AggregateID:   "order-1",
		AggregateType: "Order",
		EventType:     "OrderCreated",
		EventData:     map[string]any{},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := projector.RunOnce(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := len(publisher.published()); got != 0 {
		t.Fatalf("expected no published events, got %d", got)
	}
}
