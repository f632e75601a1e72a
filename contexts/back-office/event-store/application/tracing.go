package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kasir/contexts/back-office/event-store/domain/entities"
	"kasir/contexts/back-office/event-store/ports"
)

var _ ports.EventStore = (*TracedStore)(nil)

// TracedStore decorates an EventStore with OpenTelemetry spans, one per
// operation. Errors are recorded on the span and returned unchanged.
type TracedStore struct {
	next   ports.EventStore
	tracer trace.Tracer
}

func NewTracedStore(next ports.EventStore) *TracedStore {
	return &TracedStore{
		next:   next,
		tracer: otel.Tracer("kasir/back-office/event-store"),
	}
}

func (t *TracedStore) Append(ctx context.Context, envelope entities.Envelope) (entities.StoredEvent, error) {
	ctx, span := t.startSpan(ctx, "EventStore.Append", envelope)
	defer span.End()

	event, err := t.next.Append(ctx, envelope)
	t.finishSpan(span, event.Version, err)
	return event, err
}

func (t *TracedStore) AppendWithExpectedVersion(ctx context.Context, envelope entities.Envelope, expectedVersion int64) (entities.StoredEvent, error) {
	ctx, span := t.startSpan(ctx, "EventStore.AppendWithExpectedVersion", envelope)
	span.SetAttributes(attribute.Int64("eventstore.expected_version", expectedVersion))
	defer span.End()

	event, err := t.next.AppendWithExpectedVersion(ctx, envelope, expectedVersion)
	t.finishSpan(span, event.Version, err)
	return event, err
}

func (t *TracedStore) GetEvents(ctx context.Context, aggregateID string, aggregateType string) ([]entities.StoredEvent, error) {
	ctx, span := t.tracer.Start(ctx, "EventStore.GetEvents",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("eventstore.aggregate_id", aggregateID),
			attribute.String("eventstore.aggregate_type", aggregateType),
		),
	)
	defer span.End()

	events, err := t.next.GetEvents(ctx, aggregateID, aggregateType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return events, err
	}
	span.SetAttributes(attribute.Int("eventstore.event_count", len(events)))
	return events, nil
}

func (t *TracedStore) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]entities.StoredEvent, error) {
	attrs := []attribute.KeyValue{
		attribute.String("eventstore.event_type", eventType),
	}
	if since != nil {
		attrs = append(attrs, attribute.String("eventstore.since", since.UTC().Format(time.RFC3339Nano)))
	}
	ctx, span := t.tracer.Start(ctx, "EventStore.GetEventsByType",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	events, err := t.next.GetEventsByType(ctx, eventType, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return events, err
	}
	span.SetAttributes(attribute.Int("eventstore.event_count", len(events)))
	return events, nil
}

func (t *TracedStore) startSpan(ctx context.Context, name string, envelope entities.Envelope) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("eventstore.aggregate_id", envelope.AggregateID),
			attribute.String("eventstore.aggregate_type", envelope.AggregateType),
			attribute.String("eventstore.event_type", envelope.EventType),
		),
	)
}

func (t *TracedStore) finishSpan(span trace.Span, version int64, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int64("eventstore.version", version))
}
