package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfa/chat-tui/chat"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL + "/")
	c.SetToken("secret")
	return c
}

func TestListConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/conversations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `[{"id":1,"title":"first"},{"id":"abc","title":"second"}]`)
	})

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []chat.Summary{{ID: "1", Title: "first"}, {ID: "abc", Title: "second"}}, convs)
}

func TestGetConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/42", r.URL.Path)
		_, _ = io.WriteString(w, `[{"role":"user","content":"hi"},{"role":"model","content":"hello"}]`)
	})

	msgs, err := c.GetConversation(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{chat.UserMessage("hi"), chat.ModelMessage("hello")}, msgs)
}

func TestSendChat_Body(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, c.SendChat(context.Background(), "hello", chat.Draft))
	require.NoError(t, c.SendChat(context.Background(), "again", "42"))

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"query": "hello", "conversation_id": nil}, bodies[0])
	assert.Equal(t, map[string]any{"query": "again", "conversation_id": "42"}, bodies[1])
}

func TestSendChat_ServerErrorIsDispatchFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"model offline"}`)
	})

	err := c.SendChat(context.Background(), "hello", chat.Draft)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "model offline", apiErr.Message)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestSendChat_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL)

	err := c.SendChat(context.Background(), "hello", chat.Draft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send chat")
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestRenameAndDelete(t *testing.T) {
	type call struct {
		Method string
		Path   string
		Body   string
	}
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.RenameConversation(context.Background(), "7", "Budget"))
	require.NoError(t, c.DeleteConversation(context.Background(), "7"))

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/conversations/7", calls[0].Path)
	assert.JSONEq(t, `{"title":"Budget"}`, calls[0].Body)
	assert.Equal(t, call{http.MethodDelete, "/conversations/7", ""}, calls[1])
}

func TestParseError_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such conversation\n")
	})

	_, err := c.GetConversation(context.Background(), "404")
	assert.EqualError(t, err, "API 404: no such conversation")
}
