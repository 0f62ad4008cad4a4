// Package store keeps a local ledger of messages whose rows were already
// appended to the sheet, so re-runs never duplicate rows even when marking a
// message as read failed.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed (
    message_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    subject TEXT,
    appended_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_processed_run ON processed(run_id);
`

// Store is the processed-message ledger backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the ledger database, creating the file and schema as needed.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsProcessed reports whether a message id is already in the ledger.
func (s *Store) IsProcessed(messageID string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM processed WHERE message_id = ?", messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return true, nil
}

// MarkProcessed records a message id. Recording the same id twice is a no-op.
func (s *Store) MarkProcessed(messageID, runID, subject string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed (message_id, run_id, subject) VALUES (?, ?, ?)",
		messageID, runID, subject,
	)
	if err != nil {
		return fmt.Errorf("failed to record message %s: %w", messageID, err)
	}
	return nil
}

// Count returns the number of ledgered messages.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processed").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return n, nil
}
