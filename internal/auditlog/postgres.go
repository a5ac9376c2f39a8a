package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	auditTableName          = "linktree_sync_audit"
	postgresOperationTimout = 5 * time.Second
)

// Entry records the outcome of one synchronization batch.
type Entry struct {
	CorrelationID string
	StartedAt     time.Time
	Duration      time.Duration
	Created       int
	Updated       int
	Archived      int
	Status        string
	Detail        string
}

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresAuditLog appends one row per sync batch. The table is created
// lazily on first use.
type PostgresAuditLog struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresAuditLog(dsn string) (*PostgresAuditLog, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("audit log dsn is empty")
	}
	return &PostgresAuditLog{
		dsn:       dsn,
		tableName: auditTableName,
		openDB:    sql.Open,
	}, nil
}

func (l *PostgresAuditLog) RecordSync(ctx context.Context, entry Entry) error {
	if l == nil {
		return nil
	}
	if err := l.ensureReady(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, postgresOperationTimout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (correlation_id, started_at, duration_ms, created_count, updated_count, archived_count, status, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, postgresQuoteIdentifier(l.tableName))
	_, err := l.db.ExecContext(opCtx, query,
		entry.CorrelationID,
		entry.StartedAt,
		entry.Duration.Milliseconds(),
		entry.Created,
		entry.Updated,
		entry.Archived,
		entry.Status,
		entry.Detail,
	)
	return err
}

func (l *PostgresAuditLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *PostgresAuditLog) ensureReady() error {
	l.initOnce.Do(func() {
		db, err := l.openDB("postgres", l.dsn)
		if err != nil {
			l.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimout)
		defer cancel()

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				correlation_id TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				duration_ms BIGINT NOT NULL,
				created_count INT NOT NULL,
				updated_count INT NOT NULL,
				archived_count INT NOT NULL,
				status TEXT NOT NULL,
				detail TEXT NOT NULL DEFAULT '',
				recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, postgresQuoteIdentifier(l.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			l.initErr = err
			return
		}
		l.db = db
	})
	return l.initErr
}

func postgresQuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
