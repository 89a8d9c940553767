// Package storage provides conversation storage abstraction.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Each storage implementation encapsulates its own data structures and protocols

package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/model"
)

// CompactionRecord captures one compaction pass over a session's history.
// Records accumulate per session; the latest record's CostAfter feeds the
// growth check on the next analysis.
type CompactionRecord struct {
	// ID is a unique identifier for this record.
	ID string `json:"id"`
	// SessionID is the session this compaction belongs to.
	SessionID string `json:"session_id"`
	// Strategy names the compaction strategy that ran.
	Strategy string `json:"strategy"`
	// Deleted is the range of original history covered by this pass.
	Deleted contextmgr.DeletedRange `json:"deleted"`
	// Summary is the text that replaced the covered range.
	Summary string `json:"summary"`
	// CostBefore is the estimated token cost before compaction.
	CostBefore int `json:"cost_before"`
	// CostAfter is the estimated token cost after compaction.
	CostAfter int `json:"cost_after"`
	// CreatedAt is the Unix timestamp when the pass completed.
	CreatedAt int64 `json:"created_at"`
}

// NewCompactionRecord creates a record with a fresh ID and timestamp.
func NewCompactionRecord(sessionID, strategy string, deleted contextmgr.DeletedRange, summary string, costBefore, costAfter int) CompactionRecord {
	return CompactionRecord{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Strategy:   strategy,
		Deleted:    deleted,
		Summary:    summary,
		CostBefore: costBefore,
		CostAfter:  costAfter,
		CreatedAt:  time.Now().Unix(),
	}
}

// ConversationStorage defines the interface for storing conversation history
// and its compaction bookkeeping.
// Implementations can use different backends (memory, database).
type ConversationStorage interface {
	// Save saves conversation history for a session.
	Save(ctx context.Context, sessionID string, history []model.ConversationMessage) error

	// Load loads conversation history for a session.
	// Returns empty slice (not nil) if session doesn't exist.
	// Returns error only for storage failures (I/O errors, etc.), not missing sessions.
	Load(ctx context.Context, sessionID string) ([]model.ConversationMessage, error)

	// Delete deletes conversation history for a session, including its
	// compaction records.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)

	// RecordCompaction appends a compaction record for a session.
	RecordCompaction(ctx context.Context, record CompactionRecord) error

	// Compactions returns a session's compaction records, oldest first.
	Compactions(ctx context.Context, sessionID string) ([]CompactionRecord, error)

	// LastCompaction returns the most recent compaction record for a
	// session, or nil if the session has never been compacted.
	LastCompaction(ctx context.Context, sessionID string) (*CompactionRecord, error)
}
