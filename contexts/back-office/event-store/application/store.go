package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kasir/contexts/back-office/event-store/domain/entities"
	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
	"kasir/contexts/back-office/event-store/ports"
)

// eventActionPrefix namespaces event rows inside the shared audit journal so
// they can be told apart from plain audit rows on the same entity.
const eventActionPrefix = "event:"

// Store persists domain events in the append-only journal and reads them back
// in canonical order. It performs no retries; journal errors surface to the
// caller unmodified.
type Store struct {
	Journal ports.Journal
	Logger  *slog.Logger
}

func NewStore(journal ports.Journal, logger *slog.Logger) *Store {
	return &Store{Journal: journal, Logger: logger}
}

// Append persists the envelope as the next event of its aggregate. The
// assigned version is one greater than the aggregate's highest version at the
// time of the lookup; the journal's uniqueness guarantee turns a lost race
// into domain ErrVersionConflict instead of a silently duplicated version.
func (s *Store) Append(ctx context.Context, envelope entities.Envelope) (entities.StoredEvent, error) {
	return s.append(ctx, envelope, -1)
}

// AppendWithExpectedVersion persists the envelope at expectedVersion+1 and
// fails with ErrVersionConflict when the aggregate's current head version is
// not exactly expectedVersion. An expected version of 0 requires the
// aggregate to have no history yet.
func (s *Store) AppendWithExpectedVersion(ctx context.Context, envelope entities.Envelope, expectedVersion int64) (entities.StoredEvent, error) {
	if expectedVersion < 0 {
		return entities.StoredEvent{}, domainerrors.ErrInvalidExpectedVersion
	}
	return s.append(ctx, envelope, expectedVersion)
}

func (s *Store) append(ctx context.Context, envelope entities.Envelope, expectedVersion int64) (entities.StoredEvent, error) {
	logger := ResolveLogger(s.Logger)
	if err := envelope.Validate(); err != nil {
		return entities.StoredEvent{}, err
	}

	latest, found, err := s.Journal.FindLatest(ctx, ports.JournalFilter{
		EntityID:     envelope.AggregateID,
		EntityType:   envelope.AggregateType,
		ActionPrefix: eventActionPrefix,
	})
	if err != nil {
		return entities.StoredEvent{}, fmt.Errorf("find latest event: %w", err)
	}
	var head int64
	if found {
		head = latest.Version
	}
	if expectedVersion >= 0 && head != expectedVersion {
		return entities.StoredEvent{}, domainerrors.ErrVersionConflict
	}
	version := head + 1

	record, err := recordFromEnvelope(envelope, version)
	if err != nil {
		return entities.StoredEvent{}, err
	}

	inserted, err := s.Journal.Insert(ctx, record)
	if err != nil {
		logger.Error("event append failed",
			"event", "event_append_failed",
			"module", "back-office/event-store",
			"layer", "application",
			"aggregate_id", envelope.AggregateID,
			"aggregate_type", envelope.AggregateType,
			"event_type", envelope.EventType,
			"version", version,
			"error", err.Error(),
		)
		return entities.StoredEvent{}, err
	}
	return eventFromRecord(inserted)
}

// GetEvents returns the aggregate's full history ordered by CreatedAt
// ascending. An empty aggregateType matches every aggregate type sharing the
// id. An aggregate with no history yields an empty slice, not an error.
func (s *Store) GetEvents(ctx context.Context, aggregateID string, aggregateType string) ([]entities.StoredEvent, error) {
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return nil, domainerrors.ErrAggregateIDRequired
	}

	records, err := s.Journal.FindAll(ctx, ports.JournalFilter{
		EntityID:     aggregateID,
		EntityType:   strings.TrimSpace(aggregateType),
		ActionPrefix: eventActionPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("load events for aggregate %q: %w", aggregateID, err)
	}
	return eventsFromRecords(records)
}

// GetEventsByType scans event rows across all aggregates whose event type
// matches exactly, optionally restricted to CreatedAt >= since, ordered by
// CreatedAt ascending. Used for cross-aggregate projections.
func (s *Store) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]entities.StoredEvent, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return nil, domainerrors.ErrEventTypeRequired
	}

	records, err := s.Journal.FindAll(ctx, ports.JournalFilter{
		Action: eventActionPrefix + eventType,
		Since:  since,
	})
	if err != nil {
		return nil, fmt.Errorf("load events of type %q: %w", eventType, err)
	}
	return eventsFromRecords(records)
}

func recordFromEnvelope(envelope entities.Envelope, version int64) (ports.JournalRecord, error) {
	oldValue, err := json.Marshal(map[string]int64{"version": version})
	if err != nil {
		return ports.JournalRecord{}, fmt.Errorf("encode event version: %w", err)
	}
	newValue, err := json.Marshal(envelope.EventData)
	if err != nil {
		return ports.JournalRecord{}, fmt.Errorf("encode event data: %w", err)
	}
	var metadata []byte
	if envelope.Metadata != nil {
		metadata, err = json.Marshal(envelope.Metadata)
		if err != nil {
			return ports.JournalRecord{}, fmt.Errorf("encode event metadata: %w", err)
		}
	}

	return ports.JournalRecord{
		TenantID:   envelope.TenantID,
		Action:     eventActionPrefix + envelope.EventType,
		EntityType: envelope.AggregateType,
		EntityID:   envelope.AggregateID,
		Version:    version,
		OldValue:   oldValue,
		NewValue:   newValue,
		Metadata:   metadata,
	}, nil
}

func eventsFromRecords(records []ports.JournalRecord) ([]entities.StoredEvent, error) {
	events := make([]entities.StoredEvent, 0, len(records))
	for _, record := range records {
		event, err := eventFromRecord(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func eventFromRecord(record ports.JournalRecord) (entities.StoredEvent, error) {
	version := record.Version
	if version == 0 && len(record.OldValue) > 0 {
		// Rows written before the dedicated version column carry the version
		// only inside the old-value payload.
		var prior struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(record.OldValue, &prior); err != nil {
			return entities.StoredEvent{}, fmt.Errorf("decode event version for record %q: %w", record.ID, err)
		}
		version = prior.Version
	}

	var data map[string]any
	if len(record.NewValue) > 0 {
		if err := json.Unmarshal(record.NewValue, &data); err != nil {
			return entities.StoredEvent{}, fmt.Errorf("decode event data for record %q: %w", record.ID, err)
		}
	}
	var metadata map[string]any
	if len(record.Metadata) > 0 {
		if err := json.Unmarshal(record.Metadata, &metadata); err != nil {
			return entities.StoredEvent{}, fmt.Errorf("decode event metadata for record %q: %w", record.ID, err)
		}
	}

	return entities.StoredEvent{
		ID:            record.ID,
		TenantID:      record.TenantID,
		AggregateID:   record.EntityID,
		AggregateType: record.EntityType,
		EventType:     strings.TrimPrefix(record.Action, eventActionPrefix),
		Version:       version,
		EventData:     data,
		Metadata:      metadata,
		CreatedAt:     record.CreatedAt,
	}, nil
}
