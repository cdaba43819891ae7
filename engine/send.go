package engine

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/chat"
)

// Send appends text to the transcript, marks the active conversation as
// pending and returns the command that issues the chat request. It returns
// nil without touching any state when text is blank or a reply is already
// pending.
func (e *Engine) Send(text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	id := e.tracker.Current()
	if e.status.IsPending(id) {
		e.logger.Debug("send rejected, reply pending", "conversation_id", id.String())
		return nil
	}

	e.transcript.Append(chat.UserMessage(text))
	e.status.SetStatus(id, StatusWorking)
	e.status.SetPending(id, true)

	b := e.backend
	timeout := e.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := b.SendChat(ctx, text, id)
		return Dispatched{ID: id, Err: err}
	}
}

// HandleDispatched rolls back the pending state of a request that could not
// be issued. The optimistic user message stays in the transcript.
func (e *Engine) HandleDispatched(r Dispatched) {
	if r.Err == nil {
		return
	}
	e.logger.Error("failed to send message", "conversation_id", r.ID.String(), "error", r.Err)
	e.status.SetStatus(r.ID, StatusSendFailed)
	e.status.SetPending(r.ID, false)
}
