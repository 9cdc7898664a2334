package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Reply is one named agent response drained from the remote service.
type Reply struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// StartRequest carries the parameters of a start-conversation call.
// AgentID holds the canonical persona name for single conversations and is
// empty for group conversations, where AgentList names every member.
type StartRequest struct {
	AgentID    string
	Message    string
	MultiAgent bool
	AgentList  []string
}

// Transport is the surface the submission pipeline and poller consume.
// Tests substitute fakes; Client is the HTTP implementation.
type Transport interface {
	StartConversation(ctx context.Context, req StartRequest) (string, error)
	ContinueConversation(ctx context.Context, conversationID, message string) error
	GetResponses(ctx context.Context, conversationID string) ([]Reply, bool, error)
}

// StatusError reports a non-2xx response from the remote service.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Code)
}

// Client speaks the remote conversation wire protocol over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Transport = (*Client)(nil)

// NewClient builds a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type startPayload struct {
	AgentID    *string  `json:"agent_id"`
	Message    string   `json:"message"`
	MultiAgent bool     `json:"multi_agent"`
	AgentList  []string `json:"agent_list"`
}

type startResponse struct {
	ConversationID string `json:"conversation_id"`
}

// StartConversation opens a remote conversation and returns its opaque id.
func (c *Client) StartConversation(ctx context.Context, req StartRequest) (string, error) {
	payload := startPayload{
		Message:    req.Message,
		MultiAgent: req.MultiAgent,
		AgentList:  req.AgentList,
	}
	if req.AgentID != "" {
		payload.AgentID = &req.AgentID
		if len(payload.AgentList) == 0 {
			payload.AgentList = []string{req.AgentID}
		}
	}
	if payload.AgentList == nil {
		payload.AgentList = []string{}
	}

	var out startResponse
	if err := c.postJSON(ctx, "/start_conversation", payload, &out); err != nil {
		return "", err
	}
	if out.ConversationID == "" {
		return "", errors.New("start_conversation: response missing conversation_id")
	}
	log.Debug().Str("remote_id", out.ConversationID).Msg("started remote conversation")
	return out.ConversationID, nil
}

type continuePayload struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// ContinueConversation submits another turn to an existing remote
// conversation. Reply content is retrieved separately via GetResponses.
func (c *Client) ContinueConversation(ctx context.Context, conversationID, message string) error {
	payload := continuePayload{ConversationID: conversationID, Message: message}
	return c.postJSON(ctx, "/continue_conversation", payload, nil)
}

type responsesEnvelope struct {
	Responses []Reply `json:"responses"`
	HasMore   bool    `json:"has_more"`
}

// GetResponses drains pending replies for a remote conversation. A missing
// responses field is an empty batch, not an error.
func (c *Client) GetResponses(ctx context.Context, conversationID string) ([]Reply, bool, error) {
	url := c.baseURL + "/get_responses/" + conversationID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "building get_responses request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "get_responses")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &StatusError{Op: "get_responses", Code: resp.StatusCode}
	}

	var envelope responsesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, errors.Wrap(err, "decoding get_responses body")
	}
	if envelope.Responses == nil {
		envelope.Responses = []Reply{}
	}
	return envelope.Responses, envelope.HasMore, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encoding %s payload", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "building %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, strings.TrimPrefix(path, "/"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: strings.TrimPrefix(path, "/"), Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s body", path)
	}
	return nil
}
