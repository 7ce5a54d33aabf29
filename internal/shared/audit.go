package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Validate reports whether log carries the mandatory fields.
func (log AuditLog) Validate() error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.Validate(); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// List returns one page of records, newest first, optionally filtered by
// action prefix, together with the pagination metadata.
func (l *AuditLogger) List(ctx context.Context, actionPrefix string, page, perPage int) ([]AuditLog, Pagination, error) {
	if l == nil || l.pool == nil {
		return nil, Pagination{}, errors.New("audit logger not initialised")
	}
	var total int
	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE action LIKE $1 || '%'`, actionPrefix).Scan(&total); err != nil {
		return nil, Pagination{}, err
	}
	pg := NewPagination(page, perPage, total)
	rows, err := l.pool.Query(ctx, `
SELECT actor_id, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE action LIKE $1 || '%'
ORDER BY occurred_at DESC, id DESC
LIMIT $2 OFFSET $3`, actionPrefix, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var (
			entry AuditLog
			meta  []byte
		)
		if err := rows.Scan(&entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, Pagination{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, Pagination{}, err
			}
		}
		logs = append(logs, entry)
	}
	return logs, pg, rows.Err()
}
