// Package storage provides SQLite conversation storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PrimeOccasion/cline/model"
)

// SqliteStorage implements ConversationStorage using SQLite.
// Stores conversation history and compaction records in a database file.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	// Create parent directory if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
			UNIQUE(session_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages(session_id, message_index);

		CREATE TABLE IF NOT EXISTS compactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			deleted_start INTEGER NOT NULL,
			deleted_end INTEGER NOT NULL,
			summary TEXT NOT NULL,
			cost_before INTEGER NOT NULL,
			cost_after INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_compactions_session
		ON compactions(session_id, created_at);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SqliteStorage) ensureSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (session_id) VALUES (?)",
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// Save saves conversation history for a session.
// Message content parts are serialized to JSON per row.
func (s *SqliteStorage) Save(ctx context.Context, sessionID string, history []model.ConversationMessage) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	// Start transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	// Clear existing messages for this session
	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	// Insert all messages
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (session_id, message_index, role, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("failed to serialize message %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx, sessionID, i, msg.Role.String(), string(content))
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	// Update session timestamp
	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = datetime('now') WHERE session_id = ?",
		sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load loads conversation history for a session.
// Returns empty slice if session doesn't exist.
func (s *SqliteStorage) Load(ctx context.Context, sessionID string) ([]model.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY message_index ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []model.ConversationMessage{} // Start with empty slice, not nil
	for rows.Next() {
		var roleStr, content string
		if err := rows.Scan(&roleStr, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		var parts []model.ContentPart
		if err := json.Unmarshal([]byte(content), &parts); err != nil {
			return nil, fmt.Errorf("failed to deserialize message content: %w", err)
		}

		messages = append(messages, model.ConversationMessage{
			Role:    model.ParseRole(roleStr),
			Content: parts,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// Delete deletes conversation history for a session.
func (s *SqliteStorage) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?",
		sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	// Foreign keys may be off for this connection, so clear children explicitly.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM compactions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session compactions: %w", err)
	}
	return nil
}

// ListSessions lists all session IDs.
func (s *SqliteStorage) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{} // Start with empty slice, not nil
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Exists checks if a session exists.
func (s *SqliteStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE session_id = ?",
		sessionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}

	return count > 0, nil
}

// RecordCompaction appends a compaction record for a session.
func (s *SqliteStorage) RecordCompaction(ctx context.Context, record CompactionRecord) error {
	if err := s.ensureSession(ctx, record.SessionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compactions
		(id, session_id, strategy, deleted_start, deleted_end, summary, cost_before, cost_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SessionID,
		record.Strategy,
		record.Deleted.Start,
		record.Deleted.End,
		record.Summary,
		record.CostBefore,
		record.CostAfter,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record compaction: %w", err)
	}
	return nil
}

// Compactions returns a session's compaction records, oldest first.
func (s *SqliteStorage) Compactions(ctx context.Context, sessionID string) ([]CompactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, strategy, deleted_start, deleted_end, summary, cost_before, cost_after, created_at
		FROM compactions
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query compactions: %w", err)
	}
	defer rows.Close()

	records := []CompactionRecord{}
	for rows.Next() {
		var r CompactionRecord
		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.Strategy,
			&r.Deleted.Start,
			&r.Deleted.End,
			&r.Summary,
			&r.CostBefore,
			&r.CostAfter,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compaction: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating compactions: %w", err)
	}

	return records, nil
}

// LastCompaction returns the most recent compaction record, or nil.
func (s *SqliteStorage) LastCompaction(ctx context.Context, sessionID string) (*CompactionRecord, error) {
	var r CompactionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, strategy, deleted_start, deleted_end, summary, cost_before, cost_after, created_at
		FROM compactions
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		sessionID).Scan(
		&r.ID,
		&r.SessionID,
		&r.Strategy,
		&r.Deleted.Start,
		&r.Deleted.End,
		&r.Summary,
		&r.CostBefore,
		&r.CostAfter,
		&r.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last compaction: %w", err)
	}

	return &r, nil
}

// Verify SqliteStorage implements ConversationStorage
var _ ConversationStorage = (*SqliteStorage)(nil)
