package engine

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/chat"
)

// HandleFrame parses one stream payload and routes it. Keep-alives and
// malformed frames leave every store untouched.
func (e *Engine) HandleFrame(data []byte) tea.Cmd {
	ev, ok, err := ParseFrame(data)
	if err != nil {
		e.logger.Warn("dropping frame", "error", err, "size", len(data))
		return nil
	}
	if !ok {
		return nil
	}
	return e.HandleEvent(ev)
}

// HandleEvent routes a decoded event.
//
// session_created is applied unconditionally: the list is refreshed and the
// new conversation selected. Every other event must name the conversation
// that is active right now; anything else is dropped unless background
// tracking is on, in which case only the status entry of its own
// conversation is updated.
func (e *Engine) HandleEvent(ev Event) tea.Cmd {
	if ev.Type == EventSessionCreated {
		if ev.ConversationID.IsDraft() {
			e.logger.Warn("session_created without conversation_id")
			return nil
		}
		e.logger.Info("conversation created", "conversation_id", ev.ConversationID.String())
		return tea.Batch(e.Refresh(), e.Select(ev.ConversationID))
	}

	switch ev.Type {
	case EventStatus, EventText, EventImage:
	default:
		e.logger.Debug("ignoring event", "type", string(ev.Type))
		return nil
	}

	if ev.ConversationID != e.tracker.Current() {
		if e.opts.TrackBackground {
			e.applyStatus(ev)
			return nil
		}
		e.logger.Debug("dropping event for inactive conversation",
			"type", string(ev.Type),
			"conversation_id", ev.ConversationID.String(),
			"active", e.tracker.Current().String(),
		)
		return nil
	}

	e.applyStatus(ev)
	if ev.IsTerminal() {
		e.transcript.Append(chat.ModelMessage(ev.Content))
	}
	return nil
}

// HandleStreamError reports a dropped stream on the active conversation.
// Other conversations keep their pending flags; the failure cannot be
// correlated with a particular request.
func (e *Engine) HandleStreamError(err error) {
	id := e.tracker.Current()
	e.logger.Warn("stream connection lost", "conversation_id", id.String(), "error", err)
	e.status.SetStatus(id, StatusConnectionLost)
	e.status.SetPending(id, false)
}

func (e *Engine) applyStatus(ev Event) {
	switch ev.Type {
	case EventStatus:
		e.status.SetStatus(ev.ConversationID, ev.Message)
	case EventText, EventImage:
		e.status.SetStatus(ev.ConversationID, "")
		e.status.SetPending(ev.ConversationID, false)
	}
}
