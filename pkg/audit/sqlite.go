package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS update_attempts (
	id            TEXT PRIMARY KEY,
	case_id       TEXT NOT NULL,
	content       TEXT NOT NULL,
	address_text  TEXT NOT NULL,
	mode          TEXT NOT NULL,
	status        TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_update_attempts_case ON update_attempts(case_id);
`

// SQLiteStore is the file-backed Store implementation. The table is
// append-only: the store exposes no update or delete path.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and initializes on first use) the audit database at
// the given path. An empty path defaults to ~/.caseflow/audit.db.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("audit: resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".caseflow", "audit.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("audit: create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts the record and returns its generated id.
func (s *SQLiteStore) Append(ctx context.Context, record *Record) (string, error) {
	id := uuid.New().String()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_attempts
		 (id, case_id, content, address_text, mode, status, session_id, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, record.CaseID, record.Content, record.AddressText, record.Mode,
		record.Status, record.SessionID, record.ErrorMessage, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("audit: insert attempt: %w", err)
	}

	record.ID = id
	return id, nil
}

// ListByCase returns the attempts for one case in append order. Used by
// operators inspecting the trail, never by the core itself.
func (s *SQLiteStore) ListByCase(ctx context.Context, caseID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, content, address_text, mode, status, session_id, error_message, created_at
		 FROM update_attempts WHERE case_id = ? ORDER BY created_at, id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("audit: query attempts: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.CaseID, &rec.Content, &rec.AddressText,
			&rec.Mode, &rec.Status, &rec.SessionID, &rec.ErrorMessage, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan attempt: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate attempts: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
