package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/timemachine/chatcore/internal/service/backend"
)

// Config bounds one polling session.
type Config struct {
	// Interval between poll cycles.
	Interval time.Duration
	// MaxAttempts caps cycles that yield no new replies, errors included.
	MaxAttempts int
	// MaxEmpty caps consecutive empty responses.
	MaxEmpty int
}

// DefaultConfig mirrors the tuning the reference frontend shipped with.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		MaxAttempts: 15,
		MaxEmpty:    10,
	}
}

// Poller drives repeated get-responses calls for conversations with replies
// in flight. Loops are scoped per conversation id: starting a loop for one
// conversation never disturbs another, and loops for distinct conversations
// run concurrently.
type Poller struct {
	transport backend.Transport
	cfg       Config

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

type session struct {
	cancel context.CancelFunc
}

// New builds a poller on top of the given transport.
func New(transport backend.Transport, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.MaxEmpty <= 0 {
		cfg.MaxEmpty = DefaultConfig().MaxEmpty
	}
	return &Poller{
		transport: transport,
		cfg:       cfg,
		sessions:  make(map[string]*session),
	}
}

// Start begins a polling session for the conversation, replacing any session
// already running for the same conversation id. onReplies receives each
// deduplicated non-empty batch in arrival order.
func (p *Poller) Start(conversationID, remoteID string, onReplies func([]backend.Reply)) {
	ctx, cancel := context.WithCancel(context.Background())
	current := &session{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.sessions[conversationID]; ok {
		prev.cancel()
	}
	p.sessions[conversationID] = current
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.clear(conversationID, current)
		p.loop(ctx, conversationID, remoteID, onReplies)
	}()
}

// Stop cancels the polling session for one conversation, if any.
func (p *Poller) Stop(conversationID string) {
	p.mu.Lock()
	s, ok := p.sessions[conversationID]
	if ok {
		delete(p.sessions, conversationID)
	}
	p.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// Active reports whether a polling session is currently running for the
// conversation.
func (p *Poller) Active(conversationID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[conversationID]
	return ok
}

// Close cancels every session and waits for the loops to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	for id, s := range p.sessions {
		s.cancel()
		delete(p.sessions, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) clear(conversationID string, s *session) {
	p.mu.Lock()
	// Only clear our own entry; a replacement session may have taken over.
	if current, ok := p.sessions[conversationID]; ok && current == s {
		delete(p.sessions, conversationID)
	}
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context, conversationID, remoteID string, onReplies func([]backend.Reply)) {
	logger := log.With().Str("conversation_id", conversationID).Str("remote_id", remoteID).Logger()

	attempts := 0
	emptyStreak := 0
	wait := p.cfg.Interval
	maxWait := 8 * p.cfg.Interval
	seen := make(map[string]struct{})

	for {
		if attempts >= p.cfg.MaxAttempts {
			logger.Debug().Int("attempts", attempts).Msg("poll attempts exhausted")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		replies, _, err := p.transport.GetResponses(ctx, remoteID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			attempts++
			wait *= 2
			if wait > maxWait {
				wait = maxWait
			}
			logger.Debug().Err(err).Int("attempts", attempts).Dur("backoff", wait).Msg("poll cycle failed")
			continue
		}

		fresh := dedup(replies, seen)
		if len(fresh) == 0 {
			attempts++
			emptyStreak++
			wait = p.cfg.Interval
			if emptyStreak >= p.cfg.MaxEmpty {
				logger.Debug().Int("empty_streak", emptyStreak).Msg("empty-streak cap reached")
				return
			}
			continue
		}

		onReplies(fresh)
		// More replies may follow in a burst; start the window over.
		attempts = 0
		emptyStreak = 0
		wait = p.cfg.Interval
	}
}

// dedup drops replies already delivered within this polling session, keyed
// by persona name plus content.
func dedup(replies []backend.Reply, seen map[string]struct{}) []backend.Reply {
	fresh := make([]backend.Reply, 0, len(replies))
	for _, reply := range replies {
		key := reply.Agent + "\x00" + reply.Content
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, reply)
	}
	return fresh
}
