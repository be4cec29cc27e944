package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidAuditLog flags audit records missing their subject.
var ErrInvalidAuditLog = errors.New("audit log requires action, entity and entity id")

// AuditLog is one document lifecycle event stored in audit_logs.
type AuditLog struct {
	Action    string
	Entity    string
	EntityID  string
	RequestID string
	Meta      map[string]any
	At        time.Time
}

func (l AuditLog) validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return ErrInvalidAuditLog
	}
	return nil
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, now: time.Now}
}

// Record persists the log entry. The request id is taken from ctx when the
// caller did not set one; a zero At means now.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	if log.RequestID == "" {
		log.RequestID = chimw.GetReqID(ctx)
	}
	if log.At.IsZero() {
		log.At = l.now()
	}
	meta := log.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("audit meta: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (action, entity, entity_id, request_id, meta, occurred_at) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		log.Action, log.Entity, log.EntityID, log.RequestID, metaJSON, log.At.UTC())
	return err
}
