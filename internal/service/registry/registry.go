package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timemachine/chatcore/internal/model/chat"
)

var (
	ErrConversationExists   = errors.New("conversation already exists")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Registry is the authoritative in-memory map of conversation id to message
// timeline, plus the active-conversation pointer. All message mutation goes
// through the reducer operations (Append, RemoveByID, ReplaceAll); no other
// code path touches a conversation's messages.
type Registry struct {
	mu            sync.RWMutex
	conversations map[string]*chat.Conversation
	active        string
	onChange      func(map[string]*chat.Conversation)
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		conversations: make(map[string]*chat.Conversation),
	}
}

// SetOnChange installs the hook invoked with a snapshot of the full
// conversation set after every mutating operation. Used for persistence.
func (r *Registry) SetOnChange(fn func(map[string]*chat.Conversation)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Create adds an empty conversation. The registry never holds two
// conversations with the same id.
func (r *Registry) Create(id, displayName string) (*chat.Conversation, error) {
	r.mu.Lock()
	if _, ok := r.conversations[id]; ok {
		r.mu.Unlock()
		return nil, ErrConversationExists
	}
	conversation := chat.NewConversation(id, displayName)
	r.conversations[id] = conversation
	if r.active == "" {
		r.active = id
	}
	snapshot, hook := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snapshot, hook)
	return conversation.Clone(), nil
}

// Append pushes a message to the tail of the named conversation, assigning
// an id when the message carries none. An unknown conversation id is a
// silent no-op; callers are expected to have created the conversation first.
func (r *Registry) Append(conversationID string, message chat.Message) {
	r.mu.Lock()
	conversation, ok := r.conversations[conversationID]
	if !ok {
		r.mu.Unlock()
		log.Debug().Str("conversation_id", conversationID).Msg("append to unknown conversation ignored")
		return
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	conversation.Messages = append(conversation.Messages, message)
	snapshot, hook := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snapshot, hook)
}

// RemoveByID drops the message with the given id from the named
// conversation. A missing conversation or id is a no-op, so removal is
// idempotent.
func (r *Registry) RemoveByID(conversationID, messageID string) {
	r.mu.Lock()
	conversation, ok := r.conversations[conversationID]
	if !ok {
		r.mu.Unlock()
		return
	}
	removed := false
	messages := conversation.Messages[:0]
	for _, m := range conversation.Messages {
		if !removed && m.ID == messageID {
			removed = true
			continue
		}
		messages = append(messages, m)
	}
	conversation.Messages = messages
	if !removed {
		r.mu.Unlock()
		return
	}
	snapshot, hook := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snapshot, hook)
}

// ReplaceAll swaps in a whole conversation set. Used when hydrating from the
// persistent store at startup. The active pointer is repointed when it no
// longer names a known conversation.
func (r *Registry) ReplaceAll(conversations map[string]*chat.Conversation) {
	r.mu.Lock()
	r.conversations = make(map[string]*chat.Conversation, len(conversations))
	for id, c := range conversations {
		r.conversations[id] = c.Clone()
	}
	if _, ok := r.conversations[r.active]; !ok {
		r.active = r.earliestLocked()
	}
	snapshot, hook := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snapshot, hook)
}

// Delete removes a conversation. When the deleted conversation was active,
// the pointer moves to the earliest remaining conversation, or empties when
// none remain.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	if _, ok := r.conversations[id]; !ok {
		r.mu.Unlock()
		return ErrConversationNotFound
	}
	delete(r.conversations, id)
	if r.active == id {
		r.active = r.earliestLocked()
	}
	snapshot, hook := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snapshot, hook)
	return nil
}

// SetActive repoints the active conversation. Switching never mutates any
// conversation's messages, so the persistence hook does not fire.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return ErrConversationNotFound
	}
	r.active = id
	return nil
}

// Active returns the id of the active conversation, or "" when the registry
// is empty.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Get returns a snapshot of one conversation.
func (r *Registry) Get(id string) (*chat.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, false
	}
	return conversation.Clone(), true
}

// List returns snapshots of every conversation, ordered by creation time
// with the id as tie-breaker.
func (r *Registry) List() []*chat.Conversation {
	r.mu.RLock()
	out := make([]*chat.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, c.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Snapshot returns a deep copy of the full conversation set.
func (r *Registry) Snapshot() map[string]*chat.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, _ := r.snapshotLocked()
	return snapshot
}

func (r *Registry) snapshotLocked() (map[string]*chat.Conversation, func(map[string]*chat.Conversation)) {
	snapshot := make(map[string]*chat.Conversation, len(r.conversations))
	for id, c := range r.conversations {
		snapshot[id] = c.Clone()
	}
	return snapshot, r.onChange
}

// notify runs outside the lock so the hook may read the registry freely.
func (r *Registry) notify(snapshot map[string]*chat.Conversation, hook func(map[string]*chat.Conversation)) {
	if hook != nil {
		hook(snapshot)
	}
}

func (r *Registry) earliestLocked() string {
	earliest := ""
	for id, c := range r.conversations {
		if earliest == "" {
			earliest = id
			continue
		}
		other := r.conversations[earliest]
		if c.CreatedAt.Before(other.CreatedAt) ||
			(c.CreatedAt.Equal(other.CreatedAt) && id < earliest) {
			earliest = id
		}
	}
	return earliest
}
