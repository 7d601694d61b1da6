package history

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"StreamChat/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), "my-endpoint", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndRecent(t *testing.T) {
	store := newTestStore(t)

	first := chat.AssistantResponse{
		Messages:  []chat.Message{{Role: chat.RoleAssistant, Content: "answer one"}},
		RequestID: "req-1",
	}
	if err := store.Save("question one", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := chat.AssistantResponse{
		Messages: []chat.Message{
			{Role: chat.RoleAssistant, Content: "part a"},
			{Role: chat.RoleTool, Content: "part b"},
		},
	}
	if err := store.Save("question two", second); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := store.Recent(50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].UserMessage != "question two" {
		t.Errorf("first entry = %q, want newest", entries[0].UserMessage)
	}
	if entries[0].AssistantResponse != "part a\npart b" {
		t.Errorf("assistant text = %q", entries[0].AssistantResponse)
	}
	if entries[1].RequestID != "req-1" {
		t.Errorf("request id = %q, want req-1", entries[1].RequestID)
	}
	if entries[1].Endpoint != "my-endpoint" {
		t.Errorf("endpoint = %q", entries[1].Endpoint)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestRecentLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.Save("q", chat.AssistantResponse{
			Messages: []chat.Message{{Role: chat.RoleAssistant, Content: "a"}},
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	entries, err := store.Recent(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestGetAndRate(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("q", chat.AssistantResponse{
		Messages: []chat.Message{{Role: chat.RoleAssistant, Content: "a"}},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := store.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	id := entries[0].ID

	if err := store.Rate(id, 1); err != nil {
		t.Fatalf("rate: %v", err)
	}
	entry, err := store.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Rating != 1 {
		t.Errorf("rating = %d, want 1", entry.Rating)
	}

	if _, err := store.Get(id + 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing: err = %v, want ErrNotFound", err)
	}
	if err := store.Rate(id+999, -1); !errors.Is(err, ErrNotFound) {
		t.Errorf("rate missing: err = %v, want ErrNotFound", err)
	}
}
