package store_test

import (
	"path/filepath"
	"testing"

	"github.com/timemachine/chatcore/internal/model/chat"
	"github.com/timemachine/chatcore/internal/service/registry"
	"github.com/timemachine/chatcore/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "timechat.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadEmptyStore(t *testing.T) {
	s := openTestStore(t)

	conversations, err := s.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if conversations != nil {
		t.Fatalf("expected nil map for absent record, got %v", conversations)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	r := registry.New()
	if _, err := r.Create("einstein", "Albert Einstein"); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	r.Append("einstein", chat.NewUserMessage("Hello"))
	r.Append("einstein", chat.NewAgentMessage("Albert Einstein", "Hi there"))

	if err := s.Save(r.Snapshot()); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	conversation, ok := loaded["einstein"]
	if !ok {
		t.Fatal("round-tripped conversation missing")
	}
	if conversation.DisplayName != "Albert Einstein" {
		t.Fatalf("unexpected display name: %s", conversation.DisplayName)
	}
	if len(conversation.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conversation.Messages))
	}
	if conversation.Messages[0].Kind != chat.KindUser || conversation.Messages[0].Content != "Hello" {
		t.Fatalf("unexpected first message: %+v", conversation.Messages[0])
	}
	if conversation.Messages[1].Persona != "Albert Einstein" {
		t.Fatalf("unexpected attribution: %+v", conversation.Messages[1])
	}
}

func TestSaveReplacesPreviousRecord(t *testing.T) {
	s := openTestStore(t)

	r := registry.New()
	if _, err := r.Create("einstein", "Albert Einstein"); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if err := s.Save(r.Snapshot()); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	if err := r.Delete("einstein"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if err := s.Save(r.Snapshot()); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty conversation set, got %d entries", len(loaded))
	}
}
