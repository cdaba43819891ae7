package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/markdown"
	"github.com/jpfa/chat-tui/style"
)

// note is a client-side line shown under the transcript (help output,
// command feedback). Notes never reach the server.
type note struct {
	text string
	err  bool
}

// ChatModel is a scrollable viewport that displays the active transcript.
type ChatModel struct {
	vp       viewport.Model
	messages []chat.Message
	version  uint64
	notes    []note
	loading  bool
	width    int
	height   int
}

// NewChat constructs a ChatModel sized to width x height.
func NewChat(width, height int) ChatModel {
	vp := viewport.New(width, height)
	m := ChatModel{vp: vp, width: width, height: height}
	m.refresh()
	return m
}

// SetMessages replaces the rendered transcript. version is the transcript
// version the messages were read at; an unchanged version is a no-op.
func (m *ChatModel) SetMessages(msgs []chat.Message, version uint64) {
	if version == m.version && len(msgs) == len(m.messages) {
		return
	}
	m.messages = msgs
	m.version = version
	m.refresh()
}

// Version is the transcript version last passed to SetMessages.
func (m ChatModel) Version() uint64 { return m.version }

// Rerender redraws every message, e.g. after a theme change.
func (m *ChatModel) Rerender() { m.refresh() }

// SetLoading shows the loading placeholder while the transcript is empty.
func (m *ChatModel) SetLoading(loading bool) {
	if m.loading == loading {
		return
	}
	m.loading = loading
	m.refresh()
}

// AddNote appends a dimmed local note.
func (m *ChatModel) AddNote(text string) {
	m.notes = append(m.notes, note{text: text})
	m.refresh()
}

// AddError appends a local error note.
func (m *ChatModel) AddError(text string) {
	m.notes = append(m.notes, note{text: text, err: true})
	m.refresh()
}

// ClearNotes drops all local notes, e.g. when switching conversations.
func (m *ChatModel) ClearNotes() {
	if len(m.notes) == 0 {
		return
	}
	m.notes = nil
	m.refresh()
}

// SetSize resizes the underlying viewport.
func (m *ChatModel) SetSize(width, height int) {
	if width == m.width && height == m.height {
		return
	}
	m.width = width
	m.height = height
	m.vp.Width = width
	m.vp.Height = height
	m.refresh()
}

func (m *ChatModel) ScrollToTop()    { m.vp.GotoTop() }
func (m *ChatModel) ScrollToBottom() { m.vp.GotoBottom() }

// Init satisfies tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return nil
}

// Update forwards keyboard and mouse events to the viewport.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// View returns the rendered viewport content.
func (m ChatModel) View() string {
	return m.vp.View()
}

// refresh re-renders everything into the viewport and scrolls to the bottom.
func (m *ChatModel) refresh() {
	m.vp.SetContent(m.renderAll())
	m.vp.GotoBottom()
}

func (m *ChatModel) renderAll() string {
	var blocks []string
	switch {
	case len(m.messages) == 0 && m.loading:
		blocks = append(blocks, style.Faint.Render("  Loading messages…"))
	case len(m.messages) == 0 && len(m.notes) == 0:
		blocks = append(blocks, style.Faint.Render("  No messages yet. Type below to get started."))
	}
	for _, msg := range m.messages {
		blocks = append(blocks, renderMessage(msg, m.width))
	}
	for _, n := range m.notes {
		if n.err {
			blocks = append(blocks, style.NoteBlock.BorderForeground(style.MsgBorderError).Foreground(style.Error).Render(n.text))
			continue
		}
		blocks = append(blocks, style.NoteBlock.Render(n.text))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage converts one transcript message to a display block.
func renderMessage(msg chat.Message, width int) string {
	inner := width - 3 // border + padding
	if inner < 20 {
		inner = 20
	}
	switch msg.Role {
	case chat.RoleUser:
		body := lipgloss.NewStyle().Width(inner).Render(msg.Content)
		return style.UserBlock.Render(style.UserLabel.Render("You") + "\n" + body)
	default:
		var body string
		if msg.IsImage() {
			body = style.ImageTag.Render(ImagePlaceholder(msg.Content))
		} else {
			body = markdown.RenderWidth(msg.Content, inner)
		}
		return style.ModelBlock.Render(style.ModelLabel.Render("Assistant") + "\n" + body)
	}
}

// ImagePlaceholder describes an inline image in one line, e.g.
//
//	[image png 640×480 · 24 KB]
func ImagePlaceholder(content string) string {
	img, err := chat.ParseImage(content)
	if err != nil {
		return "[image (unreadable)]"
	}
	parts := []string{"image", img.Format()}
	if img.Width > 0 && img.Height > 0 {
		parts = append(parts, fmt.Sprintf("%d×%d", img.Width, img.Height))
	}
	return "[" + strings.Join(parts, " ") + " · " + formatSize(len(img.Data)) + "]"
}

func formatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%d KB", (n+512)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
