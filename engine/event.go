package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jpfa/chat-tui/chat"
)

// EventType classifies a pushed event.
type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventStatus         EventType = "status"
	EventText           EventType = "text"
	EventImage          EventType = "image"
)

// KeepAlive is the frame payload the server sends to hold the stream open.
const KeepAlive = ":"

// ErrMalformedFrame is returned for frames that are neither the keep-alive
// marker nor a JSON object with a type.
var ErrMalformedFrame = errors.New("malformed frame")

// Event is one decoded stream frame.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID chat.ID   `json:"conversation_id"`
	Message        string    `json:"message,omitempty"`
	Content        string    `json:"content,omitempty"`
}

// IsTerminal reports whether the event resolves a pending request.
func (e Event) IsTerminal() bool {
	return e.Type == EventText || e.Type == EventImage
}

// ParseFrame decodes a frame payload. ok is false for keep-alives and for
// malformed frames; err is non-nil only for the latter.
func ParseFrame(data []byte) (ev Event, ok bool, err error) {
	payload := strings.TrimSpace(string(data))
	if payload == KeepAlive || payload == "" {
		return Event{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if ev.Type == "" {
		return Event{}, false, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return ev, true, nil
}
