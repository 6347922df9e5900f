// Package api is the chat-svc REST client used by the synchronization core.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gosocialchat/internal/common"
	"gosocialchat/internal/protocol"
)

const defaultTimeout = 15 * time.Second

// Error is a non-2xx response from chat-svc.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("chat-svc: %d %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *Error) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the chat-svc at baseURL (scheme and host, no
// /api/v1 suffix) authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api/v1",
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListConversations(ctx context.Context) ([]protocol.Conversation, error) {
	var out []protocol.Conversation
	err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &out)
	return out, err
}

func (c *Client) GetConversation(ctx context.Context, conversationID string) (*protocol.Conversation, error) {
	var out protocol.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateConversation(ctx context.Context, req protocol.CreateConversationRequest) (*protocol.Conversation, error) {
	var out protocol.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(conversationID), nil, nil, nil)
}

// FetchPage returns page (1-based) of the conversation, newest first.
func (c *Client) FetchPage(ctx context.Context, conversationID string, page, limit int) (*protocol.MessagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out protocol.MessagePage
	if err := c.do(ctx, http.MethodGet, conversationPath(conversationID, "messages"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
	var out protocol.Message
	if err := c.do(ctx, http.MethodPost, conversationPath(conversationID, "messages"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reply(ctx context.Context, conversationID, replyToID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
	var out protocol.Message
	path := conversationPath(conversationID, "messages", replyToID, "replies")
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetReaction(ctx context.Context, conversationID, messageID string, req protocol.ReactionRequest) (*protocol.ReactionEvent, error) {
	var out protocol.ReactionEvent
	path := conversationPath(conversationID, "messages", messageID, "reactions")
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(conversationID, "messages", messageID), nil, nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost, conversationPath(conversationID, "read"), nil, nil, nil)
}

func (c *Client) Search(ctx context.Context, conversationID, query string, limit int) ([]protocol.Message, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out protocol.SearchResult
	if err := c.do(ctx, http.MethodGet, conversationPath(conversationID, "search"), q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func conversationPath(conversationID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/conversations/")
	b.WriteString(url.PathEscape(conversationID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload common.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
