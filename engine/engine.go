// Package engine keeps the conversation state of the client in sync with the
// single server-push stream.
//
// One stream carries events for every conversation. The engine routes each
// event against the conversation that is active at the moment the event is
// processed, tracks a status line and a pending flag per conversation, and
// owns the transcript of the active conversation. All methods except
// Tracker.Current must be called from the bubbletea update loop; network
// work is returned as tea.Cmd values whose results come back as the message
// types declared in messages.go.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/chat"
)

// Status lines shown to the user.
const (
	StatusWorking        = "Analyzing..."
	StatusSendFailed     = "Error sending message!"
	StatusConnectionLost = "Connection to server lost."
	StatusLoadFailed     = "Error loading messages."
	StatusListFailed     = "Error loading conversations."
)

// DefaultTitle labels the draft and conversations missing from the list.
const DefaultTitle = "New Chat"

const defaultRequestTimeout = 30 * time.Second

// ErrBusy is returned by Delete while the active conversation awaits a reply.
var ErrBusy = errors.New("a reply is still pending")

// Backend is the request/response side of the server.
type Backend interface {
	ListConversations(ctx context.Context) ([]chat.Summary, error)
	GetConversation(ctx context.Context, id chat.ID) ([]chat.Message, error)
	SendChat(ctx context.Context, query string, id chat.ID) error
	RenameConversation(ctx context.Context, id chat.ID, title string) error
	DeleteConversation(ctx context.Context, id chat.ID) error
}

// Preferences persists the last viewed conversation on the client.
type Preferences interface {
	LastConversation() (chat.ID, error)
	SetLastConversation(id chat.ID) error
	ClearLastConversation() error
}

// Options tunes an Engine.
type Options struct {
	// TrackBackground applies status and terminal events of inactive
	// conversations to their status entry. The transcript is never touched.
	TrackBackground bool
	// RequestTimeout bounds each backend call. Zero means 30s.
	RequestTimeout time.Duration
	Preferences    Preferences
	Logger         *slog.Logger
}

// Engine is the conversation streaming state engine.
type Engine struct {
	backend    Backend
	prefs      Preferences
	opts       Options
	logger     *slog.Logger
	status     *StatusStore
	tracker    *Tracker
	transcript *Transcript

	conversations []chat.Summary
	loading       bool
	fetchSeq      uint64
}

// New builds an Engine and restores the persisted selection, if any.
func New(backend Backend, opts Options) *Engine {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		backend:    backend,
		prefs:      opts.Preferences,
		opts:       opts,
		logger:     logger.With("component", "engine"),
		status:     NewStatusStore(),
		transcript: &Transcript{},
	}

	initial := chat.Draft
	if e.prefs != nil {
		id, err := e.prefs.LastConversation()
		if err != nil {
			e.logger.Warn("failed to read last conversation", "error", err)
		} else {
			initial = id
		}
	}
	e.tracker = NewTracker(initial)
	return e
}

// Init loads the conversation list and the transcript of the restored
// selection.
func (e *Engine) Init() tea.Cmd {
	cmds := []tea.Cmd{e.Refresh()}
	if id := e.tracker.Current(); !id.IsDraft() {
		cmds = append(cmds, e.fetchTranscript(id))
	}
	return tea.Batch(cmds...)
}

// Tracker exposes the live selection for goroutines outside the loop.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Current returns the active conversation.
func (e *Engine) Current() chat.ID { return e.tracker.Current() }

// Status returns the status line of the active conversation.
func (e *Engine) Status() string { return e.status.Status(e.Current()) }

// StatusOf returns the status line of id.
func (e *Engine) StatusOf(id chat.ID) string { return e.status.Status(id) }

// IsPending reports whether the active conversation awaits a reply.
func (e *Engine) IsPending() bool { return e.status.IsPending(e.Current()) }

// IsPendingFor reports whether id awaits a reply.
func (e *Engine) IsPendingFor(id chat.ID) bool { return e.status.IsPending(id) }

// Statuses returns a copy of every status entry.
func (e *Engine) Statuses() map[chat.ID]StatusEntry { return e.status.Snapshot() }

// Loading reports whether a transcript fetch for the active conversation is
// in flight.
func (e *Engine) Loading() bool { return e.loading }

// CanSend reports whether the input should accept a message now.
func (e *Engine) CanSend() bool { return !e.loading && !e.IsPending() }

// Messages returns the transcript of the active conversation.
func (e *Engine) Messages() []chat.Message { return e.transcript.Messages() }

// TranscriptVersion changes whenever the transcript does.
func (e *Engine) TranscriptVersion() uint64 { return e.transcript.Version() }

// Conversations returns the last loaded conversation list.
func (e *Engine) Conversations() []chat.Summary { return slices.Clone(e.conversations) }

// Title returns the list title of the active conversation.
func (e *Engine) Title() string {
	id := e.Current()
	if id.IsDraft() {
		return DefaultTitle
	}
	for _, c := range e.conversations {
		if c.ID == id && c.Title != "" {
			return c.Title
		}
	}
	return DefaultTitle
}

// Select makes id the active conversation. Selecting the active one is a
// no-op. Otherwise the transcript is cleared and refetched and the choice is
// persisted.
func (e *Engine) Select(id chat.ID) tea.Cmd {
	if !e.tracker.Select(id) {
		return nil
	}
	e.transcript.Reset(nil)
	e.persist(id)
	if id.IsDraft() {
		e.loading = false
		e.fetchSeq++
		return nil
	}
	e.logger.Debug("conversation selected", "conversation_id", id.String())
	return e.fetchTranscript(id)
}

// NewConversation switches to the draft and resets its status.
func (e *Engine) NewConversation() {
	if e.prefs != nil {
		if err := e.prefs.ClearLastConversation(); err != nil {
			e.logger.Warn("failed to clear last conversation", "error", err)
		}
	}
	e.tracker.Select(chat.Draft)
	e.transcript.Reset(nil)
	e.loading = false
	e.fetchSeq++
	e.status.SetStatus(chat.Draft, "")
	e.status.SetPending(chat.Draft, false)
}

// Refresh reloads the conversation list.
func (e *Engine) Refresh() tea.Cmd {
	b := e.backend
	timeout := e.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		convs, err := b.ListConversations(ctx)
		return ConversationsLoaded{Conversations: convs, Err: err}
	}
}

// Rename sets a new title on id. The local list is updated before the
// request completes.
func (e *Engine) Rename(id chat.ID, title string) tea.Cmd {
	if id.IsDraft() || title == "" {
		return nil
	}
	for i := range e.conversations {
		if e.conversations[i].ID == id {
			e.conversations[i].Title = title
		}
	}
	b := e.backend
	timeout := e.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := b.RenameConversation(ctx, id, title)
		return Renamed{ID: id, Title: title, Err: err}
	}
}

// Delete removes id on the server. It is refused while the active
// conversation awaits a reply.
func (e *Engine) Delete(id chat.ID) (tea.Cmd, error) {
	if e.IsPending() {
		return nil, ErrBusy
	}
	if id.IsDraft() {
		return nil, nil
	}
	b := e.backend
	timeout := e.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := b.DeleteConversation(ctx, id)
		return Deleted{ID: id, Err: err}
	}, nil
}

// Update applies the result messages produced by the engine's own commands.
// handled is false for any other message.
func (e *Engine) Update(m tea.Msg) (cmd tea.Cmd, handled bool) {
	switch v := m.(type) {
	case ConversationsLoaded:
		e.HandleConversationsLoaded(v)
		return nil, true
	case TranscriptLoaded:
		e.HandleTranscriptLoaded(v)
		return nil, true
	case Dispatched:
		e.HandleDispatched(v)
		return nil, true
	case Renamed:
		return e.HandleRenamed(v), true
	case Deleted:
		return e.HandleDeleted(v), true
	}
	return nil, false
}

// HandleConversationsLoaded stores a fresh list. A failed load keeps the old
// list and reports on the active conversation without touching its pending
// flag.
func (e *Engine) HandleConversationsLoaded(r ConversationsLoaded) {
	if r.Err != nil {
		e.logger.Error("failed to load conversations", "error", r.Err)
		e.status.SetStatus(e.Current(), StatusListFailed)
		return
	}
	e.conversations = slices.Clone(r.Conversations)
}

// HandleTranscriptLoaded installs a fetched transcript unless the user has
// moved on since the fetch started.
func (e *Engine) HandleTranscriptLoaded(r TranscriptLoaded) {
	if r.seq != e.fetchSeq || r.ID != e.Current() {
		e.logger.Debug("dropping stale transcript", "conversation_id", r.ID.String())
		return
	}
	e.loading = false
	if r.Err != nil {
		e.logger.Error("failed to load messages", "conversation_id", r.ID.String(), "error", r.Err)
		e.status.SetStatus(r.ID, StatusLoadFailed)
		return
	}
	e.transcript.Reset(r.Messages)
}

// HandleRenamed reloads the list after a failed rename so the sidebar shows
// the server's title again.
func (e *Engine) HandleRenamed(r Renamed) tea.Cmd {
	if r.Err != nil {
		e.logger.Error("failed to rename conversation", "conversation_id", r.ID.String(), "error", r.Err)
		return e.Refresh()
	}
	return nil
}

// HandleDeleted refreshes the list and leaves a deleted active conversation
// for the draft.
func (e *Engine) HandleDeleted(r Deleted) tea.Cmd {
	if r.Err != nil {
		e.logger.Error("failed to delete conversation", "conversation_id", r.ID.String(), "error", r.Err)
		return nil
	}
	e.conversations = slices.DeleteFunc(e.conversations, func(c chat.Summary) bool { return c.ID == r.ID })
	if r.ID == e.Current() {
		e.NewConversation()
	}
	return e.Refresh()
}

// HandleStreamRestored clears a lost-connection notice once the stream is
// back.
func (e *Engine) HandleStreamRestored() {
	id := e.Current()
	if e.status.Status(id) == StatusConnectionLost {
		e.status.SetStatus(id, "")
	}
}

func (e *Engine) fetchTranscript(id chat.ID) tea.Cmd {
	e.loading = true
	e.fetchSeq++
	seq := e.fetchSeq
	b := e.backend
	timeout := e.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		msgs, err := b.GetConversation(ctx, id)
		return TranscriptLoaded{ID: id, Messages: msgs, Err: err, seq: seq}
	}
}

func (e *Engine) persist(id chat.ID) {
	if e.prefs == nil {
		return
	}
	var err error
	if id.IsDraft() {
		err = e.prefs.ClearLastConversation()
	} else {
		err = e.prefs.SetLastConversation(id)
	}
	if err != nil {
		e.logger.Warn("failed to persist selection", "conversation_id", id.String(), "error", err)
	}
}
