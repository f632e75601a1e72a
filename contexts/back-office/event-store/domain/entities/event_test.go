package entities

import (
	"errors"
	"testing"

	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
)

func TestEnvelopeValidate(t *testing.T) {
	valid := Envelope{
		AggregateID:   "order-1",
		AggregateType: "Order",
		EventType:     "OrderCreated",
		EventData:     map[string]any{},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(Envelope) Envelope
		want   error
	}{
		{"blank aggregate id", func(e Envelope) Envelope { e.AggregateID = "  "; return e }, domainerrors.ErrAggregateIDRequired},
		{"blank aggregate type", func(e Envelope) Envelope { e.AggregateType = ""; return e }, domainerrors.ErrAggregateTypeRequired},
		{"blank event type", func(e Envelope) Envelope { e.EventType = "\t"; return e }, domainerrors.ErrEventTypeRequired},
		{"nil event data", func(e Envelope) Envelope { e.EventData = nil; return e }, domainerrors.ErrEventDataRequired},
	}
	for _, tc := range cases {
		if err := tc.mutate(valid).Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
