package chat

import "time"

// GroupConversationID is the well-known id of the single group conversation.
const GroupConversationID = "group_chat"

// Conversation holds one ordered message timeline with a persona or a group
// of personas. Messages are append/remove only and never reordered.
type Conversation struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Messages    []Message `json:"messages"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewConversation builds an empty conversation.
func NewConversation(id, displayName string) *Conversation {
	return &Conversation{
		ID:          id,
		DisplayName: displayName,
		Messages:    make([]Message, 0, 16),
		CreatedAt:   time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the registry's backing slice.
func (c *Conversation) Clone() *Conversation {
	messages := make([]Message, len(c.Messages))
	copy(messages, c.Messages)
	return &Conversation{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		Messages:    messages,
		CreatedAt:   c.CreatedAt,
	}
}
