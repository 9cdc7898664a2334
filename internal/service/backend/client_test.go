package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timemachine/chatcore/internal/service/backend"
)

func TestStartConversationSingle(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/start_conversation" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode err: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "42"})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	id, err := client.StartConversation(context.Background(), backend.StartRequest{
		AgentID: "Albert Einstein",
		Message: "Hello",
	})
	if err != nil {
		t.Fatalf("StartConversation err: %v", err)
	}
	if id != "42" {
		t.Fatalf("unexpected conversation id: %s", id)
	}

	if got["agent_id"] != "Albert Einstein" {
		t.Fatalf("unexpected agent_id: %v", got["agent_id"])
	}
	if got["multi_agent"] != false {
		t.Fatalf("unexpected multi_agent: %v", got["multi_agent"])
	}
	list, ok := got["agent_list"].([]any)
	if !ok || len(list) != 1 || list[0] != "Albert Einstein" {
		t.Fatalf("unexpected agent_list: %v", got["agent_list"])
	}
}

func TestStartConversationGroup(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode err: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "g1"})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	_, err := client.StartConversation(context.Background(), backend.StartRequest{
		Message:    "Hi all",
		MultiAgent: true,
		AgentList:  []string{"Albert Einstein", "Alan Turing"},
	})
	if err != nil {
		t.Fatalf("StartConversation err: %v", err)
	}

	if got["agent_id"] != nil {
		t.Fatalf("expected null agent_id, got %v", got["agent_id"])
	}
	if got["multi_agent"] != true {
		t.Fatalf("unexpected multi_agent: %v", got["multi_agent"])
	}
	list, ok := got["agent_list"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("unexpected agent_list: %v", got["agent_list"])
	}
}

func TestStartConversationMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	if _, err := client.StartConversation(context.Background(), backend.StartRequest{AgentID: "Alan Turing"}); err == nil {
		t.Fatal("expected error for response missing conversation_id")
	}
}

func TestContinueConversation(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/continue_conversation" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode err: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	if err := client.ContinueConversation(context.Background(), "42", "and then?"); err != nil {
		t.Fatalf("ContinueConversation err: %v", err)
	}
	if got["conversation_id"] != "42" || got["message"] != "and then?" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestGetResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_responses/42" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]string{
				{"agent": "Albert Einstein", "content": "Hi there"},
			},
			"has_more": true,
		})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	replies, hasMore, err := client.GetResponses(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetResponses err: %v", err)
	}
	if !hasMore {
		t.Fatal("expected has_more to be true")
	}
	if len(replies) != 1 || replies[0].Agent != "Albert Einstein" || replies[0].Content != "Hi there" {
		t.Fatalf("unexpected replies: %v", replies)
	}
}

func TestGetResponsesMissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	replies, hasMore, err := client.GetResponses(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetResponses err: %v", err)
	}
	if hasMore {
		t.Fatal("expected has_more to default to false")
	}
	if replies == nil || len(replies) != 0 {
		t.Fatalf("expected empty replies slice, got %v", replies)
	}
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	_, _, err := client.GetResponses(context.Background(), "42")
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status code: %d", statusErr.Code)
	}
}

func TestMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := backend.NewClient(server.URL)
	if _, _, err := client.GetResponses(context.Background(), "42"); err == nil {
		t.Fatal("expected decode error for malformed body")
	}
}
