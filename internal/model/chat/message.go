package chat

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the message variants held in a conversation timeline.
type Kind string

const (
	// KindSystem marks informational messages; they are never removed
	// automatically, only by explicit user action.
	KindSystem Kind = "system"
	// KindUser marks the human's turn.
	KindUser Kind = "user"
	// KindAgent marks a reply attributed to one persona.
	KindAgent Kind = "agent"
	// KindLoading marks a transient placeholder for a reply in flight.
	// Every loading message is removed before its turn completes.
	KindLoading Kind = "loading"
)

// Message is one entry of a conversation timeline.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Persona   string    `json:"persona,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSystemMessage builds an informational message.
func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindSystem,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewUserMessage builds a message holding the user's input.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAgentMessage builds a reply attributed to the named persona.
func NewAgentMessage(personaName, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindAgent,
		Content:   content,
		Persona:   personaName,
		CreatedAt: time.Now().UTC(),
	}
}

// NewLoadingMessage builds a placeholder shown while a reply is pending.
// The returned id is what callers later pass to RemoveByID.
func NewLoadingMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindLoading,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
