// Package storage provides in-memory conversation storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"

	"github.com/PrimeOccasion/cline/model"
)

// InMemoryStorage implements ConversationStorage using in-memory maps.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu          sync.RWMutex
	sessions    map[string][]model.ConversationMessage
	compactions map[string][]CompactionRecord
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		sessions:    make(map[string][]model.ConversationMessage),
		compactions: make(map[string][]CompactionRecord),
	}
}

// Save saves conversation history for a session.
func (s *InMemoryStorage) Save(ctx context.Context, sessionID string, history []model.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make a copy to avoid external mutations
	copied := make([]model.ConversationMessage, len(history))
	copy(copied, history)
	s.sessions[sessionID] = copied

	return nil
}

// Load loads conversation history for a session.
// Returns empty slice if session doesn't exist.
func (s *InMemoryStorage) Load(ctx context.Context, sessionID string) ([]model.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.sessions[sessionID]
	if !ok {
		return []model.ConversationMessage{}, nil
	}

	// Return a copy to avoid external mutations
	copied := make([]model.ConversationMessage, len(history))
	copy(copied, history)
	return copied, nil
}

// Delete deletes conversation history for a session.
func (s *InMemoryStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.compactions, sessionID)
	return nil
}

// ListSessions lists all session IDs.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

// Exists checks if a session exists.
func (s *InMemoryStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

// RecordCompaction appends a compaction record for a session.
func (s *InMemoryStorage) RecordCompaction(ctx context.Context, record CompactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compactions[record.SessionID] = append(s.compactions[record.SessionID], record)
	return nil
}

// Compactions returns a session's compaction records, oldest first.
func (s *InMemoryStorage) Compactions(ctx context.Context, sessionID string) ([]CompactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.compactions[sessionID]
	copied := make([]CompactionRecord, len(records))
	copy(copied, records)
	return copied, nil
}

// LastCompaction returns the most recent compaction record, or nil.
func (s *InMemoryStorage) LastCompaction(ctx context.Context, sessionID string) (*CompactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.compactions[sessionID]
	if len(records) == 0 {
		return nil, nil
	}
	record := records[len(records)-1]
	return &record, nil
}

// Verify InMemoryStorage implements ConversationStorage
var _ ConversationStorage = (*InMemoryStorage)(nil)
