// backendsim is a stand-in for the remote conversation service. It accepts
// turns, queues canned persona replies after a short delay, and serves them
// through the same polling endpoint the real backend exposes, so the client
// can be exercised end to end without the inference stack.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timemachine/chatcore/pkg/utils"
)

type reply struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

type conversation struct {
	agents  []string
	turns   int
	pending []reply
}

type simulator struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	replyDelay    time.Duration
	counter       int
}

func newSimulator(replyDelay time.Duration) *simulator {
	return &simulator{
		conversations: make(map[string]*conversation),
		replyDelay:    replyDelay,
	}
}

var cannedLines = map[string][]string{
	"Albert Einstein": {
		"Imagination is more important than knowledge.",
		"Time is relative, my friend.",
		"Let us think about that from the perspective of a beam of light.",
	},
	"Marilyn Monroe": {
		"Well, aren't you sweet for asking.",
		"Hollywood is a place where they pay you for a kiss.",
		"Keep smiling, it confuses people.",
	},
	"Alan Turing": {
		"We can only see a short distance ahead, but plenty needs doing.",
		"Is that question computable, I wonder?",
		"Machines take me by surprise with great frequency.",
	},
	"Theodore Roosevelt": {
		"Bully! Speak softly and carry a big stick.",
		"Do what you can, with what you have, where you are.",
	},
	"Nikola Tesla": {
		"The present is theirs; the future is mine.",
		"Think in terms of energy, frequency and vibration.",
	},
	"Thomas Edison": {
		"I have not failed, I've just found ten thousand ways that won't work.",
		"Genius is one percent inspiration, ninety-nine percent perspiration.",
	},
}

func (s *simulator) cannedReply(agent string, turn int) reply {
	lines, ok := cannedLines[agent]
	if !ok || len(lines) == 0 {
		return reply{Agent: agent, Content: "How very interesting."}
	}
	return reply{Agent: agent, Content: lines[turn%len(lines)]}
}

// scheduleReplies queues one reply per agent after the configured delay,
// mimicking the asynchronous generation of the real backend.
func (s *simulator) scheduleReplies(conversationID string) {
	go func() {
		time.Sleep(s.replyDelay)
		s.mu.Lock()
		defer s.mu.Unlock()
		c, ok := s.conversations[conversationID]
		if !ok {
			return
		}
		for _, agent := range c.agents {
			c.pending = append(c.pending, s.cannedReply(agent, c.turns))
		}
		c.turns++
	}()
}

func (s *simulator) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AgentID    *string  `json:"agent_id"`
		Message    string   `json:"message"`
		MultiAgent bool     `json:"multi_agent"`
		AgentList  []string `json:"agent_list"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agents := payload.AgentList
	if len(agents) == 0 && payload.AgentID != nil {
		agents = []string{*payload.AgentID}
	}
	if len(agents) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "no agents specified")
		return
	}

	s.mu.Lock()
	s.counter++
	conversationID := fmt.Sprintf("conv_%d_%d", time.Now().Unix(), s.counter)
	s.conversations[conversationID] = &conversation{agents: agents}
	s.mu.Unlock()

	if strings.TrimSpace(payload.Message) != "" {
		s.scheduleReplies(conversationID)
	}

	log.Info().Str("conversation_id", conversationID).Strs("agents", agents).
		Bool("multi_agent", payload.MultiAgent).Msg("conversation started")
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
		"status":          "processing",
	})
}

func (s *simulator) handleContinue(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	_, ok := s.conversations[payload.ConversationID]
	s.mu.Unlock()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	s.scheduleReplies(payload.ConversationID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "processing"})
}

func (s *simulator) handleGetResponses(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	var drained []reply
	if ok {
		drained = c.pending
		c.pending = nil
	}
	s.mu.Unlock()

	if !ok {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if drained == nil {
		drained = []reply{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"responses": drained,
		"has_more":  false,
	})
}

func newRouter(s *simulator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/start_conversation", s.handleStart)
	r.Post("/continue_conversation", s.handleContinue)
	r.Get("/get_responses/{conversationID}", s.handleGetResponses)
	return r
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	addr := os.Getenv("SIM_ADDR")
	if addr == "" {
		addr = ":5000"
	}

	sim := newSimulator(1500 * time.Millisecond)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(sim),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("backend simulator listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
