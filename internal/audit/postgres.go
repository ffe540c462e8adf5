package audit

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSink writes audit entries to the gateway_audit table.
type PostgresSink struct {
	db *sql.DB
}

const insertEntry = `INSERT INTO gateway_audit
	(occurred_at, user_id, tenant, method, path, status, remote_addr, user_agent, trace_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// NewPostgresSink wraps an open database handle.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// OpenPostgresSink connects to dsn and verifies the connection.
func OpenPostgresSink(dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Write(entry Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(insertEntry,
		entry.Time, entry.User, entry.Tenant, entry.Method, entry.Path,
		entry.Status, entry.RemoteAddr, entry.UserAgent, entry.TraceID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
