package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/client"
	"github.com/jpfa/chat-tui/engine"
	"github.com/jpfa/chat-tui/markdown"
	"github.com/jpfa/chat-tui/model"
	"github.com/jpfa/chat-tui/msg"
	"github.com/jpfa/chat-tui/style"
)

type fakeBackend struct {
	mu         sync.Mutex
	convs      []chat.Summary
	transcript map[chat.ID][]chat.Message
	sendErr    error
	sent       []string
	renamed    map[chat.ID]string
	deleted    []chat.ID
	gets       []chat.ID
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		convs: []chat.Summary{
			{ID: "1", Title: "first"},
			{ID: "2", Title: "second"},
		},
		transcript: map[chat.ID][]chat.Message{
			"1": {chat.UserMessage("hi"), chat.ModelMessage("hello")},
		},
		renamed: map[chat.ID]string{},
	}
}

func (f *fakeBackend) ListConversations(context.Context) ([]chat.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Summary(nil), f.convs...), nil
}

func (f *fakeBackend) GetConversation(_ context.Context, id chat.ID) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	return f.transcript[id], nil
}

func (f *fakeBackend) SendChat(_ context.Context, query string, _ chat.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, query)
	return f.sendErr
}

func (f *fakeBackend) RenameConversation(_ context.Context, id chat.ID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed[id] = title
	return nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id chat.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStream struct {
	listens    int
	reconnects int
	closed     bool
}

func (s *fakeStream) ListenCmd(client.Sender) tea.Cmd {
	s.listens++
	return func() tea.Msg { return nil }
}

func (s *fakeStream) ReconnectListenCmd(client.Sender) tea.Cmd {
	s.reconnects++
	return func() tea.Msg { return nil }
}

func (s *fakeStream) MaxReconnects() int { return 10 }
func (s *fakeStream) IsClosed() bool     { return s.closed }
func (s *fakeStream) Close()             { s.closed = true }

type nopSender struct{}

func (nopSender) Send(tea.Msg) {}

type harness struct {
	t       *testing.T
	m       Model
	eng     *engine.Engine
	backend *fakeBackend
	stream  *fakeStream
	quit    bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend()
	eng := engine.New(backend, engine.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	stream := &fakeStream{}
	m := New(eng, stream, Options{Server: "localhost:8000", Reconnect: true, ImageDir: t.TempDir()})
	m.program = nopSender{}
	h := &harness{t: t, m: m, eng: eng, backend: backend, stream: stream}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(eng.Refresh())
	return h
}

// runCmd executes cmd, giving up on timers and other slow commands.
func runCmd(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case out := <-ch:
		return out
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// send delivers m to the model and drains the resulting commands.
func (h *harness) send(m tea.Msg) {
	h.t.Helper()
	updated, cmd := h.m.Update(m)
	h.m = updated.(Model)
	h.run(cmd)
}

func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(h.t, steps, 100, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch out := runCmd(c).(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, out...)
		case tea.QuitMsg:
			h.quit = true
		default:
			updated, next := h.m.Update(out)
			h.m = updated.(Model)
			queue = append(queue, next)
		}
	}
}

func (h *harness) typeAndEnter(text string) {
	h.t.Helper()
	h.m.input.SetValue(text)
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestProgramReadyStartsStream(t *testing.T) {
	h := newHarness(t)
	h.send(ProgramReady{})
	assert.Equal(t, 1, h.stream.listens)
}

func TestSelectLoadsTranscript(t *testing.T) {
	h := newHarness(t)

	h.send(model.SidebarSelect{ID: "1"})

	assert.Equal(t, chat.ID("1"), h.eng.Current())
	assert.False(t, h.eng.Loading())
	assert.Equal(t, h.eng.TranscriptVersion(), h.m.chat.Version())
	assert.Len(t, h.eng.Messages(), 2)
	assert.Equal(t, "first", h.eng.Title())
	assert.Empty(t, h.m.input.Disabled())
}

func TestFrameForActiveConversationAppends(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})

	h.send(msg.StreamFrame{Data: []byte(`{"type":"status","conversation_id":1,"message":"Thinking"}`)})
	assert.Equal(t, "Thinking", h.m.status.Line().Text)

	h.send(msg.StreamFrame{Data: []byte(`{"type":"text","conversation_id":"1","content":"more"}`)})
	require.Len(t, h.eng.Messages(), 3)
	assert.Equal(t, chat.ModelMessage("more"), h.eng.Messages()[2])
	assert.Equal(t, h.eng.TranscriptVersion(), h.m.chat.Version())
}

func TestFrameForOtherConversationIsDropped(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})
	before := h.eng.TranscriptVersion()

	h.send(msg.StreamFrame{Data: []byte(`{"type":"text","conversation_id":"2","content":"elsewhere"}`)})
	h.send(msg.StreamFrame{Data: []byte(":")})
	h.send(msg.StreamFrame{Data: []byte("not json")})

	assert.Equal(t, before, h.eng.TranscriptVersion())
	assert.Len(t, h.eng.Messages(), 2)
}

func TestSessionCreatedSelectsNewConversation(t *testing.T) {
	h := newHarness(t)
	h.backend.convs = append(h.backend.convs, chat.Summary{ID: "9", Title: "fresh"})

	h.send(msg.StreamFrame{Data: []byte(`{"type":"session_created","conversation_id":9}`)})

	assert.Equal(t, chat.ID("9"), h.eng.Current())
	assert.Contains(t, h.backend.gets, chat.ID("9"))
	assert.Len(t, h.eng.Conversations(), 3)
}

func TestSendMarksPendingAndDisablesInput(t *testing.T) {
	h := newHarness(t)

	h.typeAndEnter("hello there")

	assert.Equal(t, []string{"hello there"}, h.backend.sent)
	assert.True(t, h.eng.IsPending())
	assert.Equal(t, engine.StatusWorking, h.m.status.Line().Text)
	assert.True(t, h.m.status.Line().Pending)
	assert.Equal(t, "Waiting for reply…", h.m.input.Disabled())
	assert.Empty(t, h.m.input.Value())

	h.typeAndEnter("again")

	assert.Len(t, h.backend.sent, 1, "second send must wait for the reply")
	assert.Equal(t, "again", h.m.input.Value(), "rejected text stays in the input")
	assert.Equal(t, 1, h.m.notices.Len())
}

func TestSendKeepsSurroundingWhitespace(t *testing.T) {
	h := newHarness(t)

	h.typeAndEnter("   ")
	assert.Empty(t, h.backend.sent, "blank input is not sent")

	h.typeAndEnter("  indented\n\tcode  ")
	assert.Equal(t, []string{"  indented\n\tcode  "}, h.backend.sent)
}

func TestSendFailureShowsError(t *testing.T) {
	h := newHarness(t)
	h.backend.sendErr = errors.New("boom")

	h.typeAndEnter("hello")

	assert.False(t, h.eng.IsPending())
	assert.Equal(t, engine.StatusSendFailed, h.m.status.Line().Text)
	assert.True(t, h.m.status.Line().Error)
	assert.Empty(t, h.m.input.Disabled())
}

func TestReplyClearsPending(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})
	h.typeAndEnter("question")
	require.True(t, h.eng.IsPending())

	h.send(msg.StreamFrame{Data: []byte(`{"type":"text","conversation_id":1,"content":"answer"}`)})

	assert.False(t, h.eng.IsPending())
	assert.Empty(t, h.m.input.Disabled())
	assert.Equal(t, chat.ModelMessage("answer"), h.eng.Messages()[len(h.eng.Messages())-1])
}

func TestStreamDisconnect(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		reconnect  bool
		closed     bool
		reconnects int
		lost       bool
	}{
		{name: "dropped", err: errors.New("EOF"), reconnect: true, reconnects: 1, lost: true},
		{name: "gave up", err: client.ErrGaveUp, reconnect: true, lost: true},
		{name: "closed", err: errors.New("EOF"), reconnect: true, closed: true, lost: true},
		{name: "reconnect disabled", err: errors.New("EOF"), lost: true},
		{name: "intentional close", err: nil, reconnect: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.m.opts.Reconnect = tt.reconnect
			h.stream.closed = tt.closed
			h.typeAndEnter("hello")
			require.True(t, h.eng.IsPending())

			h.send(msg.StreamDisconnected{Err: tt.err})

			assert.Equal(t, tt.reconnects, h.stream.reconnects)
			if tt.lost {
				assert.Equal(t, engine.StatusConnectionLost, h.eng.Status())
				assert.False(t, h.eng.IsPending())
				assert.True(t, h.m.status.Line().Error)
			} else {
				assert.True(t, h.eng.IsPending())
			}
		})
	}
}

func TestStreamConnectedClearsLostStatus(t *testing.T) {
	h := newHarness(t)
	h.m.opts.Reconnect = false
	h.send(msg.StreamDisconnected{Err: errors.New("EOF")})
	require.Equal(t, engine.StatusConnectionLost, h.eng.Status())

	h.send(msg.StreamConnected{})

	assert.Empty(t, h.eng.Status())
	assert.Empty(t, h.m.status.Line().Text)
}

func TestStreamAuthFailedClosesStream(t *testing.T) {
	h := newHarness(t)

	h.send(msg.StreamAuthFailed{})

	assert.True(t, h.stream.closed)
	assert.Equal(t, engine.StatusConnectionLost, h.eng.Status())
	assert.Equal(t, 1, h.m.notices.Len())
}

func TestReconnectAttemptsShareOneNotice(t *testing.T) {
	h := newHarness(t)
	h.send(msg.StreamReconnecting{Attempt: 1, Max: 10})
	h.send(msg.StreamReconnecting{Attempt: 2, Max: 10})
	h.send(msg.StreamReconnecting{Attempt: 3, Max: 10})

	require.Equal(t, 1, h.m.notices.Len())
	assert.Contains(t, h.m.notices.View(120), "attempt 3/10")

	h.send(msg.StreamConnected{})
	require.Equal(t, 1, h.m.notices.Len())
	assert.Contains(t, h.m.notices.View(120), "Reconnected")
}

func TestSlashRename(t *testing.T) {
	h := newHarness(t)

	h.typeAndEnter("/rename Budget")
	assert.Empty(t, h.backend.renamed, "draft cannot be renamed")

	h.send(model.SidebarSelect{ID: "1"})
	h.typeAndEnter("/rename Budget")

	assert.Equal(t, "Budget", h.backend.renamed["1"])
	assert.Equal(t, "Budget", h.eng.Title())
}

func TestSlashNew(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})

	h.typeAndEnter("/new")

	assert.True(t, h.eng.Current().IsDraft())
	assert.Empty(t, h.eng.Messages())
	assert.Equal(t, engine.DefaultTitle, h.eng.Title())
}

func TestSlashDeleteConfirmFlow(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})

	h.typeAndEnter("/delete")
	require.True(t, h.m.confirm.IsActive())
	assert.Equal(t, FocusConfirm, h.m.focus)

	h.send(runes("n"))
	assert.False(t, h.m.confirm.IsActive())
	assert.Empty(t, h.backend.deleted)
	assert.Equal(t, FocusInput, h.m.focus)

	h.typeAndEnter("/delete")
	h.send(runes("y"))

	assert.Equal(t, []chat.ID{"1"}, h.backend.deleted)
	assert.True(t, h.eng.Current().IsDraft())
	assert.Equal(t, FocusInput, h.m.focus)
}

func TestDeleteRefusedWhilePending(t *testing.T) {
	h := newHarness(t)
	h.send(model.SidebarSelect{ID: "1"})
	h.typeAndEnter("question")

	h.typeAndEnter("/delete")

	assert.False(t, h.m.confirm.IsActive())
	assert.Empty(t, h.backend.deleted)
}

func TestSlashTheme(t *testing.T) {
	t.Cleanup(func() {
		style.SetTheme("dark")
		markdown.SetStyle("dark")
	})
	h := newHarness(t)

	h.typeAndEnter("/theme light")
	assert.Equal(t, "light", style.CurrentThemeName)

	h.typeAndEnter("/theme nope")
	assert.Equal(t, "light", style.CurrentThemeName)
}

func TestSlashSaveImage(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	h.backend.transcript["2"] = []chat.Message{
		chat.UserMessage("draw"),
		chat.ModelMessage("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())),
	}
	h.send(model.SidebarSelect{ID: "2"})

	path := filepath.Join(t.TempDir(), "out.png")
	h.typeAndEnter("/save " + path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), data)
}

func TestSlashQuitClosesStream(t *testing.T) {
	h := newHarness(t)
	h.typeAndEnter("/quit")
	assert.True(t, h.quit)
	assert.True(t, h.stream.closed)
}

func TestCtrlCTwiceQuits(t *testing.T) {
	h := newHarness(t)

	h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, h.m.confirmQuit)
	assert.Contains(t, h.m.View(), "Press Ctrl+C again")

	h.send(runes("x"))
	assert.False(t, h.m.confirmQuit)
	assert.False(t, h.quit)

	h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, h.quit)
	assert.True(t, h.stream.closed)
}

func TestCtrlCClearsInputFirst(t *testing.T) {
	h := newHarness(t)
	h.m.input.SetValue("draft text")

	h.send(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Empty(t, h.m.input.Value())
	assert.False(t, h.m.confirmQuit)
}

func TestTabTogglesSidebarFocus(t *testing.T) {
	h := newHarness(t)

	h.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FocusSidebar, h.m.focus)
	assert.True(t, h.m.sidebar.Focused())
	assert.False(t, h.m.input.Focused())

	h.send(tea.KeyMsg{Type: tea.KeyDown})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, h.eng.Current().IsDraft())
	assert.Equal(t, FocusInput, h.m.focus)
}

func TestToggleSidebarHidesIt(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.m.sidebarVisible())

	h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, h.m.sidebarVisible())

	h.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FocusInput, h.m.focus)
}

func TestNarrowTerminalHidesSidebar(t *testing.T) {
	h := newHarness(t)
	h.send(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.False(t, h.m.sidebarVisible())
	assert.Equal(t, 60, h.m.mainWidth())
}

func TestSwitcherSelects(t *testing.T) {
	h := newHarness(t)

	h.send(tea.KeyMsg{Type: tea.KeyCtrlP})
	require.True(t, h.m.switcher.IsActive())
	assert.Equal(t, FocusSwitcher, h.m.focus)

	h.send(runes("second"))
	h.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, chat.ID("2"), h.eng.Current())
	assert.False(t, h.m.switcher.IsActive())
	assert.Equal(t, FocusInput, h.m.focus)
}
