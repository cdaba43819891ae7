package engine

import (
	"slices"

	"github.com/jpfa/chat-tui/chat"
)

// Transcript is the ordered message list of the active conversation.
// Messages are kept in arrival order; nothing is reordered or deduplicated.
type Transcript struct {
	messages []chat.Message
	version  uint64
}

// Append adds m to the end.
func (t *Transcript) Append(m chat.Message) {
	t.messages = append(t.messages, m)
	t.version++
}

// Reset replaces the whole transcript.
func (t *Transcript) Reset(msgs []chat.Message) {
	t.messages = slices.Clone(msgs)
	t.version++
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []chat.Message {
	return slices.Clone(t.messages)
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.messages) }

// Version increases on every mutation. Views use it to skip re-rendering.
func (t *Transcript) Version() uint64 { return t.version }
