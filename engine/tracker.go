package engine

import (
	"sync/atomic"

	"github.com/jpfa/chat-tui/chat"
)

// Tracker holds the conversation bound to the visible transcript. Reads go
// through the pointer on every call, so a callback created before the last
// selection still observes the live value.
type Tracker struct {
	current atomic.Pointer[chat.ID]
}

// NewTracker starts tracking id.
func NewTracker(id chat.ID) *Tracker {
	t := &Tracker{}
	t.current.Store(&id)
	return t
}

// Current returns the active conversation. Safe from any goroutine.
func (t *Tracker) Current() chat.ID {
	if p := t.current.Load(); p != nil {
		return *p
	}
	return chat.Draft
}

// Select makes id the active conversation and reports whether it changed.
func (t *Tracker) Select(id chat.ID) bool {
	if t.Current() == id {
		return false
	}
	t.current.Store(&id)
	return true
}
