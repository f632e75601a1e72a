package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
	"kasir/contexts/back-office/event-store/ports"

	"github.com/google/uuid"
)

// Journal is an in-memory append-only journal with the same filter, order,
// and uniqueness semantics as the relational adapters. It backs tests and
// in-memory module wiring.
type Journal struct {
	mu      sync.RWMutex
	records []ports.JournalRecord
	taken   map[string]struct{}
	now     func() time.Time
}

func NewJournal() *Journal {
	return &Journal{
		records: make([]ports.JournalRecord, 0),
		taken:   make(map[string]struct{}),
		now:     time.Now,
	}
}

// SetNow overrides the timestamp source. Tests use it to control CreatedAt.
func (j *Journal) SetNow(now func() time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.now = now
}

func (j *Journal) Insert(_ context.Context, record ports.JournalRecord) (ports.JournalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = j.now().UTC()

	if record.Version > 0 {
		key := versionKey(record.EntityType, record.EntityID, record.Version)
		if _, exists := j.taken[key]; exists {
			return ports.JournalRecord{}, domainerrors.ErrVersionConflict
		}
		j.taken[key] = struct{}{}
	}

	j.records = append(j.records, record)
	return record, nil
}

func (j *Journal) FindLatest(_ context.Context, filter ports.JournalFilter) (ports.JournalRecord, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var latest ports.JournalRecord
	found := false
	for _, record := range j.records {
		if !matches(filter, record) {
			continue
		}
		if !found || !record.CreatedAt.Before(latest.CreatedAt) {
			latest = record
			found = true
		}
	}
	return latest, found, nil
}

func (j *Journal) FindAll(_ context.Context, filter ports.JournalFilter) ([]ports.JournalRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	items := make([]ports.JournalRecord, 0)
	for _, record := range j.records {
		if matches(filter, record) {
			items = append(items, record)
		}
	}
	sort.SliceStable(items, func(i, k int) bool {
		return items[i].CreatedAt.Before(items[k].CreatedAt)
	})
	return items, nil
}

func matches(filter ports.JournalFilter, record ports.JournalRecord) bool {
	if filter.EntityID != "" && record.EntityID != filter.EntityID {
		return false
	}
	if filter.EntityType != "" && record.EntityType != filter.EntityType {
		return false
	}
	if filter.Action != "" && record.Action != filter.Action {
		return false
	}
	if filter.ActionPrefix != "" && !strings.HasPrefix(record.Action, filter.ActionPrefix) {
		return false
	}
	if filter.Since != nil && record.CreatedAt.Before(*filter.Since) {
		return false
	}
	return true
}

func versionKey(entityType, entityID string, version int64) string {
	return fmt.Sprintf("%s|%s|%d", entityType, entityID, version)
}
