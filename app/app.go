// Package app wires the conversation engine, the push stream and the view
// models into one bubbletea program.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/client"
	"github.com/jpfa/chat-tui/engine"
	"github.com/jpfa/chat-tui/model"
	"github.com/jpfa/chat-tui/msg"
)

const sidebarWidth = 30

// ProgramReady hands the running program to the model so the stream can
// deliver messages into it.
type ProgramReady struct{ Program *tea.Program }

// Stream is the push connection as seen by the app. *client.Stream
// satisfies it.
type Stream interface {
	ListenCmd(p client.Sender) tea.Cmd
	ReconnectListenCmd(p client.Sender) tea.Cmd
	MaxReconnects() int
	IsClosed() bool
	Close()
}

// Options configures the app.
type Options struct {
	// Server is the host shown in the header.
	Server string
	// Reconnect restarts the stream with backoff after it drops.
	Reconnect bool
	// ImageDir is where /save writes images. Empty means the working
	// directory.
	ImageDir string
	Logger   *slog.Logger
}

type Model struct {
	engine *engine.Engine
	stream Stream
	opts   Options
	logger *slog.Logger

	program client.Sender

	header   model.HeaderModel
	chat     model.ChatModel
	input    model.InputModel
	status   model.StatusModel
	sidebar  model.SidebarModel
	confirm  model.ConfirmModel
	switcher model.SwitcherModel
	notices  model.Notices

	keys        KeyMap
	focus       Focus
	showSidebar bool
	confirmQuit bool
	width       int
	height      int
}

// New builds the root model. stream may be nil, in which case no push
// events are received.
func New(e *engine.Engine, stream Stream, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := Model{
		engine:      e,
		stream:      stream,
		opts:        opts,
		logger:      logger.With("component", "app"),
		header:      model.NewHeader(opts.Server),
		chat:        model.NewChat(80, 20),
		input:       model.NewInput(),
		status:      model.NewStatus(),
		sidebar:     model.NewSidebar(),
		confirm:     model.NewConfirm(),
		switcher:    model.NewSwitcher(),
		notices:     model.NewNotices(),
		keys:        DefaultKeyMap(),
		focus:       FocusInput,
		showSidebar: true,
		width:       80,
		height:      24,
	}
	m.input.SetCommands(commandNames())
	m.input.Focus()
	m.layout()
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.engine.Init(), m.status.Init(), textinput.Blink, tickCmd(), tea.WindowSize())
}

// Update applies msg and re-lays out the screen.
func (m Model) Update(rawMsg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(rawMsg)
	m.layout()
	return m, cmd
}

func (m Model) update(rawMsg tea.Msg) (Model, tea.Cmd) {
	switch v := rawMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(v)
	case ProgramReady:
		if v.Program != nil {
			m.program = v.Program
		}
		return m, m.listen()

	// -- stream --
	case msg.StreamConnected:
		m.header.SetConn(model.ConnOnline)
		if m.notices.Dismiss(model.NoticeKeyStream) {
			m.notices.Post(model.NoticeKeyStream, model.NoticeSuccess, "Reconnected")
		}
		m.engine.HandleStreamRestored()
		m.sync()
		return m, nil
	case msg.StreamFrame:
		cmd := m.engine.HandleFrame(v.Data)
		m.sync()
		return m, cmd
	case msg.StreamDisconnected:
		return m.handleDisconnected(v)
	case msg.StreamReconnecting:
		m.header.SetReconnecting(v.Attempt, v.Max)
		m.notices.Post(model.NoticeKeyStream, model.NoticeWarning, fmt.Sprintf("Connection lost. Reconnecting (attempt %d/%d)...", v.Attempt, v.Max))
		return m, nil
	case msg.StreamAuthFailed:
		m.header.SetConn(model.ConnUnauthorized)
		m.engine.HandleStreamError(client.ErrUnauthorized)
		m.notices.Post(model.NoticeKeyStream, model.NoticeError, "Stream rejected the token. Check `token` in your config.")
		if m.stream != nil {
			m.stream.Close()
		}
		m.sync()
		return m, nil

	// -- engine results --
	case engine.Renamed:
		if v.Err != nil {
			m.notices.Failf("Rename failed: %v", v.Err)
		} else {
			m.notices.Post("", model.NoticeSuccess, fmt.Sprintf("Renamed to %q", v.Title))
		}
		return m.applyEngine(v)
	case engine.Deleted:
		if v.Err != nil {
			m.notices.Failf("Delete failed: %v", v.Err)
		} else {
			m.notices.Post("", model.NoticeSuccess, "Conversation deleted")
			if v.ID == m.engine.Current() {
				m.chat.ClearNotes()
			}
		}
		return m.applyEngine(v)
	case engine.ConversationsLoaded, engine.TranscriptLoaded, engine.Dispatched:
		return m.applyEngine(v)

	// -- view requests --
	case model.SidebarSelect:
		return m.selectConversation(v.ID)
	case model.SidebarNew:
		return m.newConversation()
	case model.SidebarRename:
		cmd := m.engine.Rename(v.ID, v.Title)
		m.sync()
		return m, cmd
	case model.SidebarDelete:
		return m.askDelete(v.ID, v.Title)
	case model.ConfirmDecision:
		return m.handleDeleteDecision(v)
	case model.SwitcherChoice:
		return m.selectConversation(v.ID)
	case model.SwitcherDismiss:
		m.setFocus(FocusInput)
		return m, nil
	case imageSaved:
		if v.Err != nil {
			m.notices.Failf("Save failed: %v", v.Err)
		} else {
			m.notices.Post("", model.NoticeSuccess, "Image saved to "+v.Path)
		}
		return m, nil

	// -- timers --
	case msg.TickMsg:
		m.notices.Prune()
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status, cmd = m.status.Update(v)
		m.sync()
		return m, cmd
	}

	// Cursor blink and similar component messages.
	updated, cmd := m.input.Update(rawMsg)
	if inp, ok := updated.(model.InputModel); ok {
		m.input = inp
	}
	return m, cmd
}

func (m Model) applyEngine(v tea.Msg) (Model, tea.Cmd) {
	cmd, _ := m.engine.Update(v)
	m.sync()
	return m, cmd
}

// handleDisconnected reports every drop to the engine first, then decides
// whether to reconnect.
func (m Model) handleDisconnected(v msg.StreamDisconnected) (Model, tea.Cmd) {
	if v.Err == nil {
		m.header.SetConn(model.ConnOffline)
		return m, nil
	}
	m.engine.HandleStreamError(v.Err)
	m.sync()

	if errors.Is(v.Err, client.ErrGaveUp) {
		m.logger.Error("stream gave up", "error", v.Err)
		m.header.SetConn(model.ConnOffline)
		m.notices.Post(model.NoticeKeyStream, model.NoticeError, fmt.Sprintf("Could not reach the server after %d attempts.", m.stream.MaxReconnects()))
		return m, nil
	}
	if !m.opts.Reconnect || m.stream == nil || m.stream.IsClosed() || m.program == nil {
		m.header.SetConn(model.ConnOffline)
		return m, nil
	}
	m.logger.Info("stream dropped, reconnecting", "error", v.Err)
	m.header.SetReconnecting(0, m.stream.MaxReconnects())
	return m, m.stream.ReconnectListenCmd(m.program)
}

func (m Model) listen() tea.Cmd {
	if m.stream == nil || m.program == nil || m.stream.IsClosed() {
		return nil
	}
	return m.stream.ListenCmd(m.program)
}

func (m Model) quit() (Model, tea.Cmd) {
	if m.stream != nil {
		m.stream.Close()
	}
	return m, tea.Quit
}

// -- conversation actions --

func (m Model) selectConversation(id chat.ID) (Model, tea.Cmd) {
	if id != m.engine.Current() {
		m.chat.ClearNotes()
	}
	cmd := m.engine.Select(id)
	m.setFocus(FocusInput)
	m.sync()
	return m, cmd
}

func (m Model) newConversation() (Model, tea.Cmd) {
	m.engine.NewConversation()
	m.chat.ClearNotes()
	m.setFocus(FocusInput)
	m.sync()
	return m, nil
}

func (m Model) askDelete(id chat.ID, title string) (Model, tea.Cmd) {
	if id.IsDraft() {
		m.chat.AddError("Nothing to delete yet.")
		return m, nil
	}
	if m.engine.IsPending() {
		m.notices.Post(model.NoticeKeyInput, model.NoticeWarning, "Cannot delete while waiting for a reply.")
		return m, nil
	}
	m.confirm.Ask(id, title)
	m.setFocus(FocusConfirm)
	return m, nil
}

func (m Model) handleDeleteDecision(d model.ConfirmDecision) (Model, tea.Cmd) {
	if m.showSidebar && m.sidebar.Focused() {
		m.setFocus(FocusSidebar)
	} else {
		m.setFocus(FocusInput)
	}
	if !d.Confirmed {
		return m, nil
	}
	cmd, err := m.engine.Delete(d.ID)
	if err != nil {
		m.notices.Failf("Delete refused: %v", err)
		return m, nil
	}
	return m, cmd
}

// setFocus moves keyboard focus, blurring the previous holder.
func (m *Model) setFocus(f Focus) {
	if f != FocusSidebar && f != FocusConfirm {
		m.sidebar.Blur()
	}
	if f == FocusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f == FocusSidebar {
		m.sidebar.Focus()
	}
	if f != m.focus {
		m.logger.Debug("focus changed", "from", m.focus, "to", f)
	}
	m.focus = f
}

// -- keys --

func (m Model) handleKey(k tea.KeyMsg) (Model, tea.Cmd) {
	if m.confirmQuit {
		if key.Matches(k, m.keys.Cancel) {
			return m.quit()
		}
		m.confirmQuit = false
		return m, nil
	}

	switch m.focus {
	case FocusConfirm:
		updated, cmd := m.confirm.Update(k)
		if c, ok := updated.(model.ConfirmModel); ok {
			m.confirm = c
		}
		return m, cmd
	case FocusSwitcher:
		var cmd tea.Cmd
		m.switcher, cmd = m.switcher.Update(k)
		return m, cmd
	}

	switch {
	case key.Matches(k, m.keys.Cancel):
		if m.focus == FocusInput && m.input.Value() != "" {
			m.input.Reset()
			return m, nil
		}
		m.confirmQuit = true
		return m, nil
	case key.Matches(k, m.keys.QuitEOF):
		if m.input.Value() == "" {
			return m.quit()
		}
	case key.Matches(k, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.focus == FocusSidebar {
			m.setFocus(FocusInput)
		}
		return m, nil
	case key.Matches(k, m.keys.NewConversation):
		return m.newConversation()
	case key.Matches(k, m.keys.Switcher):
		m.setFocus(FocusSwitcher)
		return m, m.switcher.Open(m.engine.Conversations(), m.engine.Current(), m.width, m.height)
	case key.Matches(k, m.keys.PageUp), key.Matches(k, m.keys.PageDown):
		updated, cmd := m.chat.Update(k)
		if c, ok := updated.(model.ChatModel); ok {
			m.chat = c
		}
		return m, cmd
	case key.Matches(k, m.keys.ScrollTop):
		m.chat.ScrollToTop()
		return m, nil
	case key.Matches(k, m.keys.ScrollBottom):
		m.chat.ScrollToBottom()
		return m, nil
	case key.Matches(k, m.keys.Help):
		m.chat.AddNote(helpText())
		return m, nil
	case key.Matches(k, m.keys.SwitchFocus):
		if m.focus == FocusInput && strings.HasPrefix(m.input.Value(), "/") {
			break // autocomplete
		}
		if !m.showSidebar || m.width < minSidebarTerm {
			return m, nil
		}
		if m.focus == FocusSidebar {
			m.setFocus(FocusInput)
		} else {
			m.setFocus(FocusSidebar)
		}
		return m, nil
	}

	if m.focus == FocusSidebar {
		if key.Matches(k, m.keys.Escape) && !m.sidebar.Renaming() {
			m.setFocus(FocusInput)
			return m, nil
		}
		updated, cmd := m.sidebar.Update(k)
		if s, ok := updated.(model.SidebarModel); ok {
			m.sidebar = s
		}
		return m, cmd
	}

	switch {
	case key.Matches(k, m.keys.Escape):
		m.input.Reset()
		return m, nil
	case key.Matches(k, m.keys.Submit):
		raw := m.input.Value()
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		return m.submitInput(raw)
	}
	updated, cmd := m.input.Update(k)
	if inp, ok := updated.(model.InputModel); ok {
		m.input = inp
	}
	return m, cmd
}

func (m Model) submitInput(text string) (Model, tea.Cmd) {
	if line := strings.TrimSpace(text); strings.HasPrefix(line, "/") {
		m.input.Submit(line)
		return m.runCommand(line)
	}
	if !m.engine.CanSend() {
		// Keep the text so nothing typed is lost.
		if m.engine.Loading() {
			m.notices.Post(model.NoticeKeyInput, model.NoticeWarning, "Still loading messages…")
		} else {
			m.notices.Post(model.NoticeKeyInput, model.NoticeWarning, "Waiting for the current reply…")
		}
		return m, nil
	}
	m.input.Submit(text)
	cmd := m.engine.Send(text)
	m.sync()
	return m, cmd
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return msg.TickMsg{} })
}

// -- rendering --

// sync pushes engine state into the views. Call it after every engine
// mutation.
func (m *Model) sync() {
	e := m.engine
	if v := e.TranscriptVersion(); v != m.chat.Version() {
		m.chat.SetMessages(e.Messages(), v)
	}
	m.chat.SetLoading(e.Loading())

	frame := m.status.Frame()
	m.header.SetTitle(e.Title())
	m.header.SetPending(e.IsPending(), frame)

	pending := map[chat.ID]bool{}
	for id, st := range e.Statuses() {
		if st.Pending {
			pending[id] = true
		}
	}
	m.sidebar.SetItems(e.Conversations(), e.Current())
	m.sidebar.SetPending(pending)
	m.sidebar.SetSpinnerFrame(frame)

	text := e.Status()
	m.status.Set(model.StatusLine{
		Text:    text,
		Pending: e.IsPending(),
		Loading: e.Loading(),
		Error:   isFailure(text),
	})

	switch {
	case e.Loading():
		m.input.SetDisabled("Loading messages…")
	case e.IsPending():
		m.input.SetDisabled("Waiting for reply…")
	default:
		m.input.SetDisabled("")
	}
}

func isFailure(status string) bool {
	switch status {
	case engine.StatusSendFailed, engine.StatusConnectionLost, engine.StatusLoadFailed, engine.StatusListFailed:
		return true
	}
	return false
}

const minSidebarTerm = 70

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= minSidebarTerm
}

func (m Model) mainWidth() int {
	if m.sidebarVisible() {
		return m.width - sidebarWidth
	}
	return m.width
}

// layout sizes every view for the current terminal and overlay state.
func (m *Model) layout() {
	w := m.mainWidth()
	m.header.SetWidth(w)
	m.input.SetWidth(w)
	m.confirm.SetWidth(w)
	m.sidebar.SetSize(sidebarWidth, m.height)
	m.chat.SetSize(w, m.chatHeight())
}

// chatHeight is the space left for the transcript.
func (m Model) chatHeight() int {
	reserved := 1 + 1 + 1 + 1 // header, separator, status, input
	reserved += m.notices.Len()
	if m.confirm.IsActive() {
		reserved += countLines(m.confirm.View())
	}
	if m.confirmQuit {
		reserved++
	}
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	return h
}

// countLines returns the number of lines in a rendered string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func (m Model) View() string {
	if m.switcher.IsActive() {
		return m.switcher.View()
	}

	w := m.mainWidth()
	sections := []string{
		m.header.View(),
		lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(strings.Repeat("─", max(w, 1))),
	}
	if m.notices.Len() > 0 {
		sections = append(sections, m.notices.View(w))
	}
	sections = append(sections, m.chat.View())
	if m.confirm.IsActive() {
		sections = append(sections, m.confirm.View())
	}
	sections = append(sections, m.status.View(), m.input.View())
	if m.confirmQuit {
		sections = append(sections, "  Press Ctrl+C again to quit, or any key to cancel.")
	}
	main := strings.Join(sections, "\n")

	if !m.sidebarVisible() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
}
