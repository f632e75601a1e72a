package sqliteadapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	domainerrors "kasir/contexts/back-office/event-store/domain/errors"
	"kasir/contexts/back-office/event-store/ports"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Journal is a SQLite-backed journal for embedded, single-outlet deployments.
// It shares the audit_logs schema and ordering semantics with the postgres
// adapter; timestamps are stored as UTC milliseconds with an autoincrement
// sequence breaking ties in append order.
type Journal struct {
	sqlDB *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	tenant_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	version INTEGER,
	old_value TEXT,
	new_value TEXT,
	metadata TEXT,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_logs_aggregate_version
	ON audit_logs (entity_type, entity_id, version) WHERE version IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs (entity_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action, created_at);
`

// Open opens the journal database at path and applies the schema.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite journal: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{sqlDB: sqlDB}, nil
}

func (j *Journal) Close() error {
	return j.sqlDB.Close()
}

func (j *Journal) Insert(ctx context.Context, record ports.JournalRecord) (ports.JournalRecord, error) {
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	var version *int64
	if record.Version > 0 {
		version = &record.Version
	}

	const stmt = `INSERT INTO audit_logs
		(id, tenant_id, action, entity_type, entity_id, version, old_value, new_value, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.sqlDB.ExecContext(ctx, stmt,
		record.ID,
		record.TenantID,
		record.Action,
		record.EntityType,
		record.EntityID,
		version,
		nullableText(record.OldValue),
		nullableText(record.NewValue),
		nullableText(record.Metadata),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return ports.JournalRecord{}, domainerrors.ErrVersionConflict
		}
		return ports.JournalRecord{}, fmt.Errorf("insert journal record: %w", err)
	}
	return record, nil
}

func (j *Journal) FindLatest(ctx context.Context, filter ports.JournalFilter) (ports.JournalRecord, bool, error) {
	query, args := buildQuery(filter, "ORDER BY created_at DESC, seq DESC LIMIT 1")
	rows, err := j.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return ports.JournalRecord{}, false, fmt.Errorf("query latest journal record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ports.JournalRecord{}, false, err
		}
		return ports.JournalRecord{}, false, nil
	}
	record, err := scanRecord(rows)
	if err != nil {
		return ports.JournalRecord{}, false, err
	}
	return record, true, nil
}

func (j *Journal) FindAll(ctx context.Context, filter ports.JournalFilter) ([]ports.JournalRecord, error) {
	query, args := buildQuery(filter, "ORDER BY created_at ASC, seq ASC")
	rows, err := j.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal records: %w", err)
	}
	defer rows.Close()

	records := make([]ports.JournalRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func buildQuery(filter ports.JournalFilter, suffix string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ActionPrefix != "" {
		clauses = append(clauses, "action LIKE ?")
		args = append(args, filter.ActionPrefix+"%")
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, toMillis(filter.Since.UTC()))
	}

	query := `SELECT id, tenant_id, action, entity_type, entity_id, version, old_value, new_value, metadata, created_at FROM audit_logs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " " + suffix, args
}

func scanRecord(rows *sql.Rows) (ports.JournalRecord, error) {
	var (
		record    ports.JournalRecord
		version   sql.NullInt64
		oldValue  sql.NullString
		newValue  sql.NullString
		metadata  sql.NullString
		createdAt int64
	)
	err := rows.Scan(
		&record.ID,
		&record.TenantID,
		&record.Action,
		&record.EntityType,
		&record.EntityID,
		&version,
		&oldValue,
		&newValue,
		&metadata,
		&createdAt,
	)
	if err != nil {
		return ports.JournalRecord{}, fmt.Errorf("scan journal record: %w", err)
	}
	if version.Valid {
		record.Version = version.Int64
	}
	if oldValue.Valid {
		record.OldValue = []byte(oldValue.String)
	}
	if newValue.Valid {
		record.NewValue = []byte(newValue.String)
	}
	if metadata.Valid {
		record.Metadata = []byte(metadata.String)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func nullableText(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
