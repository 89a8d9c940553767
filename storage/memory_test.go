package storage

import (
	"context"
	"testing"

	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/model"
)

func TestInMemoryStorageSaveAndLoad(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	messages := []model.ConversationMessage{
		model.TextMessage(model.RoleUser, "Hello"),
		model.TextMessage(model.RoleAssistant, "Hi there"),
	}

	if err := storage.Save(ctx, "test-session", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Errorf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[0].PlainText() != "Hello" {
		t.Errorf("expected 'Hello', got '%s'", loaded[0].PlainText())
	}
	if loaded[1].Role != model.RoleAssistant {
		t.Errorf("expected assistant role, got %v", loaded[1].Role)
	}
}

func TestInMemoryStorageLoadNonexistentSession(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	loaded, err := storage.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 0 {
		t.Errorf("expected empty slice, got %d messages", len(loaded))
	}
}

func TestInMemoryStorageDeleteSession(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	messages := []model.ConversationMessage{
		model.TextMessage(model.RoleUser, "Test"),
	}

	if err := storage.Save(ctx, "test-session", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.RecordCompaction(ctx, NewCompactionRecord(
		"test-session", "standard", contextmgr.DeletedRange{Start: 1, End: 2}, "summary", 100, 50)); err != nil {
		t.Fatalf("RecordCompaction failed: %v", err)
	}

	if err := storage.Delete(ctx, "test-session"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := storage.Exists(ctx, "test-session")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected session to not exist after deletion")
	}

	last, err := storage.LastCompaction(ctx, "test-session")
	if err != nil {
		t.Fatalf("LastCompaction failed: %v", err)
	}
	if last != nil {
		t.Error("expected compaction records to be deleted with session")
	}
}

func TestInMemoryStorageListSessions(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	msg := []model.ConversationMessage{
		model.TextMessage(model.RoleUser, "Test"),
	}

	if err := storage.Save(ctx, "session-1", msg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Save(ctx, "session-2", msg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestInMemoryStorageIsolation(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	// Save messages
	original := []model.ConversationMessage{
		model.TextMessage(model.RoleUser, "Original"),
	}
	if err := storage.Save(ctx, "test-session", original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Modify the original slice
	original[0] = model.TextMessage(model.RoleUser, "Modified")

	// Load and verify the stored copy is not affected
	loaded, err := storage.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded[0].PlainText() != "Original" {
		t.Errorf("expected 'Original', got '%s' - storage should copy data", loaded[0].PlainText())
	}
}

func TestInMemoryStorageCompactionRecords(t *testing.T) {
	storage := NewInMemoryStorage()
	ctx := context.Background()

	last, err := storage.LastCompaction(ctx, "s")
	if err != nil {
		t.Fatalf("LastCompaction failed: %v", err)
	}
	if last != nil {
		t.Error("expected nil for never-compacted session")
	}

	first := NewCompactionRecord("s", "standard", contextmgr.DeletedRange{Start: 1, End: 2}, "first pass", 200, 120)
	second := NewCompactionRecord("s", "aggressive", contextmgr.DeletedRange{Start: 1, End: 8}, "second pass", 300, 150)
	for _, r := range []CompactionRecord{first, second} {
		if err := storage.RecordCompaction(ctx, r); err != nil {
			t.Fatalf("RecordCompaction failed: %v", err)
		}
	}

	records, err := storage.Compactions(ctx, "s")
	if err != nil {
		t.Fatalf("Compactions failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != first.ID || records[1].ID != second.ID {
		t.Error("records not in insertion order")
	}

	last, err = storage.LastCompaction(ctx, "s")
	if err != nil {
		t.Fatalf("LastCompaction failed: %v", err)
	}
	if last == nil || last.ID != second.ID {
		t.Errorf("LastCompaction = %+v, want second record", last)
	}
	if last.CostAfter != 150 {
		t.Errorf("CostAfter = %d, want 150", last.CostAfter)
	}
}
