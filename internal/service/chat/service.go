package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/timemachine/chatcore/internal/model/chat"
	"github.com/timemachine/chatcore/internal/model/persona"
	"github.com/timemachine/chatcore/internal/service/backend"
	"github.com/timemachine/chatcore/internal/service/poller"
	"github.com/timemachine/chatcore/internal/service/registry"
)

var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrTurnInFlight         = errors.New("a turn is already in flight for this conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNoPersonasSelected   = errors.New("no personas selected")
	ErrUnknownPersona       = errors.New("unknown persona")
)

const loadingPlaceholder = "Typing..."

// Saver persists conversation snapshots. Failures are logged, never fatal;
// the in-memory registry stays authoritative for the session.
type Saver interface {
	Save(conversations map[string]*chat.Conversation) error
}

// Engine orchestrates user turns: optimistic appends, the transport call,
// placeholder cleanup, and the handoff to the poller that reconciles
// asynchronously produced replies back into the right conversation.
type Engine struct {
	registry  *registry.Registry
	transport backend.Transport
	poller    *poller.Poller
	personas  persona.Store

	mu          sync.Mutex
	inFlight    map[string]bool
	remoteIDs   map[string]string
	personaFor  map[string]string
	groupAgents map[string][]string
	notify      func(conversationID string, message chat.Message)
}

// NewEngine wires the engine and installs the persistence hook: every
// registry mutation writes the full snapshot through the saver.
func NewEngine(reg *registry.Registry, saver Saver, transport backend.Transport, p *poller.Poller, personas persona.Store) *Engine {
	e := &Engine{
		registry:    reg,
		transport:   transport,
		poller:      p,
		personas:    personas,
		inFlight:    make(map[string]bool),
		remoteIDs:   make(map[string]string),
		personaFor:  make(map[string]string),
		groupAgents: make(map[string][]string),
	}
	reg.SetOnChange(func(snapshot map[string]*chat.Conversation) {
		if saver == nil {
			return
		}
		if err := saver.Save(snapshot); err != nil {
			log.Error().Err(err).Msg("failed to persist conversations")
		}
	})
	return e
}

// SetNotify installs an observer invoked for every message the engine
// appends. The presentation layer uses it to render incoming replies.
func (e *Engine) SetNotify(fn func(conversationID string, message chat.Message)) {
	e.mu.Lock()
	e.notify = fn
	e.mu.Unlock()
}

// Hydrate seeds the registry from a persisted snapshot, or bootstraps a
// default conversation when nothing was stored.
func (e *Engine) Hydrate(conversations map[string]*chat.Conversation) {
	if len(conversations) > 0 {
		e.registry.ReplaceAll(conversations)
		return
	}
	roster := e.personas.List()
	if len(roster) == 0 {
		return
	}
	if _, err := e.OpenConversation(roster[0].ID); err != nil {
		log.Error().Err(err).Msg("failed to bootstrap default conversation")
	}
}

// OpenConversation activates the conversation for a persona, creating it on
// first selection. The first open appends a welcome message.
func (e *Engine) OpenConversation(personaID string) (*chat.Conversation, error) {
	p, ok := e.personas.FindByID(personaID)
	if !ok {
		return nil, ErrUnknownPersona
	}

	if _, exists := e.registry.Get(p.ID); !exists {
		if _, err := e.registry.Create(p.ID, p.Name); err != nil {
			return nil, err
		}
		e.registry.Append(p.ID, chat.NewSystemMessage("You are now chatting with "+p.Name+"."))
	}
	e.bindPersona(p.ID, p.Name)

	if err := e.registry.SetActive(p.ID); err != nil {
		return nil, err
	}
	conversation, _ := e.registry.Get(p.ID)
	return conversation, nil
}

// NewConversation creates an ad-hoc conversation with a generated id, bound
// to the given persona, and activates it.
func (e *Engine) NewConversation(personaID string) (*chat.Conversation, error) {
	p, ok := e.personas.FindByID(personaID)
	if !ok {
		return nil, ErrUnknownPersona
	}

	id := uuid.NewString()
	if _, err := e.registry.Create(id, p.Name); err != nil {
		return nil, err
	}
	e.bindPersona(id, p.Name)
	e.registry.Append(id, chat.NewSystemMessage("You are now chatting with "+p.Name+"."))
	if err := e.registry.SetActive(id); err != nil {
		return nil, err
	}
	conversation, _ := e.registry.Get(id)
	return conversation, nil
}

// StartGroupConversation resolves the selected persona ids and activates the
// group conversation. An empty resolution refuses the group turn before any
// network traffic and surfaces a system message instead.
func (e *Engine) StartGroupConversation(selectedIDs []string) (*chat.Conversation, error) {
	names, ok := persona.ResolveNames(e.personas, selectedIDs)

	if _, exists := e.registry.Get(chat.GroupConversationID); !exists {
		displayName := "Group Chat"
		if ok {
			displayName = "Group Chat: " + strings.Join(names, ", ")
		}
		if _, err := e.registry.Create(chat.GroupConversationID, displayName); err != nil {
			return nil, err
		}
	}
	if err := e.registry.SetActive(chat.GroupConversationID); err != nil {
		return nil, err
	}

	if !ok {
		e.appendAndNotify(chat.GroupConversationID,
			chat.NewSystemMessage("Please select at least one persona for the group chat."))
		return nil, ErrNoPersonasSelected
	}

	e.mu.Lock()
	e.groupAgents[chat.GroupConversationID] = names
	e.mu.Unlock()

	e.appendAndNotify(chat.GroupConversationID,
		chat.NewSystemMessage("Starting a group chat with "+strings.Join(names, ", ")+"."))

	conversation, _ := e.registry.Get(chat.GroupConversationID)
	return conversation, nil
}

// Submit runs one user turn against the named conversation: optimistic user
// append, loading placeholder, exactly one transport call, then the poller
// handoff. The loading placeholder is removed on every path.
func (e *Engine) Submit(ctx context.Context, conversationID, input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if _, ok := e.registry.Get(conversationID); !ok {
		return ErrConversationNotFound
	}

	e.mu.Lock()
	if e.inFlight[conversationID] {
		e.mu.Unlock()
		return ErrTurnInFlight
	}
	e.inFlight[conversationID] = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.inFlight, conversationID)
		e.mu.Unlock()
	}()

	e.appendAndNotify(conversationID, chat.NewUserMessage(input))
	loading := chat.NewLoadingMessage(loadingPlaceholder)
	e.appendAndNotify(conversationID, loading)

	remoteID, err := e.deliver(ctx, conversationID, trimmed)

	e.registry.RemoveByID(conversationID, loading.ID)

	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("turn delivery failed")
		e.appendAndNotify(conversationID,
			chat.NewSystemMessage("Sorry, I encountered an error: "+err.Error()))
		return pkgerrors.Wrap(err, "submitting turn")
	}

	e.poller.Start(conversationID, remoteID, func(replies []backend.Reply) {
		e.reconcile(conversationID, replies)
	})
	return nil
}

// deliver issues the single network call of a turn: start-conversation when
// the conversation has no remote id yet, continue-conversation otherwise.
func (e *Engine) deliver(ctx context.Context, conversationID, message string) (string, error) {
	e.mu.Lock()
	remoteID := e.remoteIDs[conversationID]
	groupNames := e.groupAgents[conversationID]
	e.mu.Unlock()

	if remoteID != "" {
		if err := e.transport.ContinueConversation(ctx, remoteID, message); err != nil {
			return "", err
		}
		return remoteID, nil
	}

	req := backend.StartRequest{Message: message}
	if conversationID == chat.GroupConversationID {
		if len(groupNames) == 0 {
			return "", ErrNoPersonasSelected
		}
		req.MultiAgent = true
		req.AgentList = groupNames
	} else {
		name, ok := e.personaName(conversationID)
		if !ok {
			return "", ErrUnknownPersona
		}
		req.AgentID = name
	}

	remoteID, err := e.transport.StartConversation(ctx, req)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.remoteIDs[conversationID] = remoteID
	e.mu.Unlock()
	return remoteID, nil
}

// reconcile appends polled replies to their conversation, one agent message
// per reply, attributed to the reply's declared persona name.
func (e *Engine) reconcile(conversationID string, replies []backend.Reply) {
	for _, reply := range replies {
		content := strings.TrimSuffix(reply.Content, "...")
		if content == "" {
			log.Warn().Str("agent", reply.Agent).Msg("skipping reply with empty content")
			continue
		}
		agent := reply.Agent
		if agent == "" {
			agent = "Unknown"
		}
		e.appendAndNotify(conversationID, chat.NewAgentMessage(agent, content))
	}
}

// DeleteConversation removes a conversation, stops its polling session, and
// recreates a default conversation when the last one was deleted.
func (e *Engine) DeleteConversation(id string) error {
	if err := e.registry.Delete(id); err != nil {
		return err
	}
	e.poller.Stop(id)

	e.mu.Lock()
	delete(e.remoteIDs, id)
	delete(e.personaFor, id)
	delete(e.groupAgents, id)
	e.mu.Unlock()

	if len(e.registry.List()) == 0 {
		roster := e.personas.List()
		if len(roster) > 0 {
			if _, err := e.OpenConversation(roster[0].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Conversations lists snapshots ordered by creation time.
func (e *Engine) Conversations() []*chat.Conversation {
	return e.registry.List()
}

// Conversation returns a snapshot of one conversation.
func (e *Engine) Conversation(id string) (*chat.Conversation, bool) {
	return e.registry.Get(id)
}

// Active returns the active conversation id.
func (e *Engine) Active() string {
	return e.registry.Active()
}

// SetActive repoints the active conversation. In-flight polling for other
// conversations is unaffected.
func (e *Engine) SetActive(id string) error {
	return e.registry.SetActive(id)
}

// Close stops all polling sessions and waits for them to drain.
func (e *Engine) Close() {
	e.poller.Close()
}

func (e *Engine) bindPersona(conversationID, canonicalName string) {
	e.mu.Lock()
	e.personaFor[conversationID] = canonicalName
	e.mu.Unlock()
}

// personaName resolves the canonical persona name behind a conversation.
// Bindings made this session win; otherwise the conversation id or display
// name is matched against the roster, which covers conversations rehydrated
// from the store.
func (e *Engine) personaName(conversationID string) (string, bool) {
	e.mu.Lock()
	name, ok := e.personaFor[conversationID]
	e.mu.Unlock()
	if ok {
		return name, true
	}
	if p, found := e.personas.FindByID(conversationID); found {
		return p.Name, true
	}
	if conversation, found := e.registry.Get(conversationID); found {
		for _, p := range e.personas.List() {
			if p.Name == conversation.DisplayName {
				return p.Name, true
			}
		}
	}
	return "", false
}

func (e *Engine) appendAndNotify(conversationID string, message chat.Message) {
	e.registry.Append(conversationID, message)
	e.mu.Lock()
	fn := e.notify
	e.mu.Unlock()
	if fn != nil {
		fn(conversationID, message)
	}
}
