package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
	"kasir/contexts/back-office/event-store/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Journal stores event rows in the shared audit_logs table. Event rows carry
// a version; plain audit rows written by other back-office services leave it
// NULL, which keeps them outside the aggregate version index.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewJournal(db *gorm.DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger}
}

// Migrate creates the audit_logs table and the partial unique index that
// closes the append version race.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&auditLogModel{}); err != nil {
		return fmt.Errorf("migrate audit_logs: %w", err)
	}
	const stmt = `CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_logs_aggregate_version
ON audit_logs (entity_type, entity_id, version)
WHERE version IS NOT NULL`
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create aggregate version index: %w", err)
	}
	return nil
}

func (j *Journal) Insert(ctx context.Context, record ports.JournalRecord) (ports.JournalRecord, error) {
	row := modelFromRecord(record)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = time.Now().UTC()

	if err := j.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.JournalRecord{}, domainerrors.ErrVersionConflict
		}
		return ports.JournalRecord{}, err
	}
	return recordFromModel(row), nil
}

func (j *Journal) FindLatest(ctx context.Context, filter ports.JournalFilter) (ports.JournalRecord, bool, error) {
	var row auditLogModel
	err := applyFilter(j.db.WithContext(ctx).Model(&auditLogModel{}), filter).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.JournalRecord{}, false, nil
		}
		return ports.JournalRecord{}, false, err
	}
	return recordFromModel(row), true, nil
}

func (j *Journal) FindAll(ctx context.Context, filter ports.JournalFilter) ([]ports.JournalRecord, error) {
	var rows []auditLogModel
	err := applyFilter(j.db.WithContext(ctx).Model(&auditLogModel{}), filter).
		Order("created_at ASC, version ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	records := make([]ports.JournalRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromModel(row))
	}
	return records, nil
}

func applyFilter(tx *gorm.DB, filter ports.JournalFilter) *gorm.DB {
	if filter.EntityID != "" {
		tx = tx.Where("entity_id = ?", filter.EntityID)
	}
	if filter.EntityType != "" {
		tx = tx.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}
	if filter.ActionPrefix != "" {
		tx = tx.Where("action LIKE ?", filter.ActionPrefix+"%")
	}
	if filter.Since != nil {
		tx = tx.Where("created_at >= ?", filter.Since.UTC())
	}
	return tx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
