package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpfa/chat-tui/chat"
)

// Client talks to the REST side of the chat backend.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New returns a Client for baseURL with a 60s request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Logger: slog.Default().With("component", "client"),
	}
}

func (c *Client) SetToken(token string) {
	c.Token = token
}

// ListConversations fetches the sidebar entries.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Summary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var convs []chat.Summary
	if err := json.NewDecoder(resp.Body).Decode(&convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// GetConversation fetches the ordered history of id.
func (c *Client) GetConversation(ctx context.Context, id chat.ID) ([]chat.Message, error) {
	resp, err := c.do(ctx, http.MethodGet, conversationPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var msgs []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// SendChat posts a user message. The draft is sent as a null
// conversation_id, asking the server to create a conversation. Any non-2xx
// answer counts as a failed dispatch.
func (c *Client) SendChat(ctx context.Context, query string, id chat.ID) error {
	resp, err := c.do(ctx, http.MethodPost, "/chat", ChatRequest{Query: query, ConversationID: id})
	if err != nil {
		return fmt.Errorf("send chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return c.parseError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// RenameConversation sets the title of id.
func (c *Client) RenameConversation(ctx context.Context, id chat.ID, title string) error {
	resp, err := c.do(ctx, http.MethodPut, conversationPath(id), RenameRequest{Title: title})
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return c.parseError(resp)
	}
	return nil
}

// DeleteConversation removes id.
func (c *Client) DeleteConversation(ctx context.Context, id chat.ID) error {
	resp, err := c.do(ctx, http.MethodDelete, conversationPath(id), nil)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return c.parseError(resp)
	}
	return nil
}

func conversationPath(id chat.ID) string {
	return "/conversations/" + url.PathEscape(string(id))
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger().Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, err
	}
	c.logger().Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{Status: resp.StatusCode}
	var er ErrorResponse
	switch {
	case json.Unmarshal(body, &er) == nil && er.message() != "":
		apiErr.Message = er.message()
	default:
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
