package entities

import (
	"strings"
	"time"

	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
)

// Envelope is the caller-supplied description of a new domain event, prior to
// persistence. TenantID carries the outlet scope and is persisted opaquely;
// the store never interprets it.
type Envelope struct {
	TenantID      string
	AggregateID   string
	AggregateType string
	EventType     string
	EventData     map[string]any
	Metadata      map[string]any
}

// StoredEvent is the immutable, versioned record returned by the store.
// Version is positive, gapless, and strictly increasing per
// (AggregateID, AggregateType). CreatedAt is stamped by the journal and
// defines the canonical ordering of an aggregate's history.
type StoredEvent struct {
	ID            string
	TenantID      string
	AggregateID   string
	AggregateType string
	EventType     string
	Version       int64
	EventData     map[string]any
	Metadata      map[string]any
	CreatedAt     time.Time
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.AggregateID) == "" {
		return domainerrors.ErrAggregateIDRequired
	}
	if strings.TrimSpace(e.AggregateType) == "" {
		return domainerrors.ErrAggregateTypeRequired
	}
	if strings.TrimSpace(e.EventType) == "" {
		return domainerrors.ErrEventTypeRequired
	}
	if e.EventData == nil {
		return domainerrors.ErrEventDataRequired
	}
	return nil
}
