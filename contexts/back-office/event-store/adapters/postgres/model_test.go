package postgresadapter

import (
	"reflect"
	"testing"
	"time"

	"kasir/contexts/back-office/event-store/ports"
)

func TestModelRoundTrip(t *testing.T) {
	record := ports.JournalRecord{
		ID:         "rec-1",
		TenantID:   "outlet-1",
		Action:     "event:OrderCreated",
		EntityType: "Order",
		EntityID:   "order-1",
		Version:    3,
		OldValue:   []byte(`{"version":3}`),
		NewValue:   []byte(`{"total":0}`),
		Metadata:   []byte(`{"actor":"emp-7"}`),
		CreatedAt:  time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC),
	}

	got := recordFromModel(modelFromRecord(record))
	if !reflect.DeepEqual(got, record) {
		t.Fatalf("round trip changed record:\n got %+v\nwant %+v", got, record)
	}
}

func TestModelVersionlessAuditRow(t *testing.T) {
	row := modelFromRecord(ports.JournalRecord{
		Action:     "update",
		EntityType: "Order",
		EntityID:   "order-1",
	})
	if row.Version != nil {
		t.Fatalf("expected NULL version for audit row, got %d", *row.Version)
	}

	record := recordFromModel(row)
	if record.Version != 0 {
		t.Fatalf("expected zero version, got %d", record.Version)
	}
}
