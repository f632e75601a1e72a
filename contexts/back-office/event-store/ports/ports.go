package ports

import (
	"context"
	"time"

	"kasir/contexts/back-office/event-store/domain/entities"
)

// JournalRecord is one row of the shared structured-audit journal. Event rows
// carry a positive Version; plain audit rows written by other back-office
// services leave it zero.
type JournalRecord struct {
	ID         string
	TenantID   string
	Action     string
	EntityType string
	EntityID   string
	Version    int64
	OldValue   []byte
	NewValue   []byte
	Metadata   []byte
	CreatedAt  time.Time
}

// JournalFilter narrows journal reads. Zero-value fields match everything.
// Action and ActionPrefix are mutually exclusive; Since is inclusive.
type JournalFilter struct {
	EntityID     string
	EntityType   string
	Action       string
	ActionPrefix string
	Since        *time.Time
}

// Journal is the append-only storage collaborator behind the event store.
// Implementations assign ID and CreatedAt on Insert, and must reject a record
// whose (EntityType, EntityID, Version) is already taken for Version > 0 with
// domain ErrVersionConflict.
type Journal interface {
	Insert(ctx context.Context, record JournalRecord) (JournalRecord, error)

	// FindLatest returns the most recently created matching record, ordered
	// by CreatedAt descending. The boolean is false when nothing matches.
	FindLatest(ctx context.Context, filter JournalFilter) (JournalRecord, bool, error)

	// FindAll returns every matching record ordered by CreatedAt ascending.
	FindAll(ctx context.Context, filter JournalFilter) ([]JournalRecord, error)
}

// EventStore is the public surface of the core, implemented by the
// application store and by decorators wrapping it.
type EventStore interface {
	Append(ctx context.Context, envelope entities.Envelope) (entities.StoredEvent, error)
	AppendWithExpectedVersion(ctx context.Context, envelope entities.Envelope, expectedVersion int64) (entities.StoredEvent, error)
	GetEvents(ctx context.Context, aggregateID string, aggregateType string) ([]entities.StoredEvent, error)
	GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]entities.StoredEvent, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event entities.StoredEvent) error
}
