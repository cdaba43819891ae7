package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/style"
)

// Messages emitted by the sidebar. The app turns them into engine calls.
type (
	SidebarSelect struct{ ID chat.ID }
	SidebarNew    struct{}
	SidebarRename struct {
		ID    chat.ID
		Title string
	}
	SidebarDelete struct {
		ID    chat.ID
		Title string
	}
)

// SidebarKeys are the bindings active while the sidebar has focus.
type SidebarKeys struct {
	Up, Down, Select, New, Rename, Delete, Cancel key.Binding
}

func defaultSidebarKeys() SidebarKeys {
	return SidebarKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Rename: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Delete: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// SidebarModel lists conversations, marks the active one and shows a
// spinner glyph next to every conversation awaiting a reply.
type SidebarModel struct {
	items   []chat.Summary
	current chat.ID
	pending map[chat.ID]bool
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
	keys    SidebarKeys

	renaming bool
	rename   textinput.Model
	frame    string
}

// NewSidebar returns an empty sidebar.
func NewSidebar() SidebarModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Prompt = ""
	return SidebarModel{keys: defaultSidebarKeys(), rename: ti, height: 10, frame: "•"}
}

// SetItems replaces the list. The cursor follows the conversation it was on
// when it still exists.
func (m *SidebarModel) SetItems(items []chat.Summary, current chat.ID) {
	var at chat.ID
	if m.cursor < len(m.items) {
		at = m.items[m.cursor].ID
	}
	m.items = items
	m.current = current
	m.cursor = 0
	for i, it := range items {
		if it.ID == at {
			m.cursor = i
			break
		}
	}
	m.clamp()
}

// SetCurrent marks the active conversation.
func (m *SidebarModel) SetCurrent(id chat.ID) { m.current = id }

// SetPending sets which conversations show the pending marker.
func (m *SidebarModel) SetPending(pending map[chat.ID]bool) { m.pending = pending }

// SetSpinnerFrame sets the glyph drawn next to pending conversations.
func (m *SidebarModel) SetSpinnerFrame(frame string) { m.frame = frame }

// SetSize sets the outer width and height including the border.
func (m *SidebarModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.rename.Width = w - 8
	m.clamp()
}

func (m *SidebarModel) Focus() {
	m.focused = true
	for i, it := range m.items {
		if it.ID == m.current {
			m.cursor = i
			break
		}
	}
	m.clamp()
}

func (m *SidebarModel) Blur() {
	m.focused = false
	m.cancelRename()
}

func (m SidebarModel) Focused() bool  { return m.focused }
func (m SidebarModel) Renaming() bool { return m.renaming }

// Highlighted returns the conversation under the cursor.
func (m SidebarModel) Highlighted() (chat.Summary, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return chat.Summary{}, false
	}
	return m.items[m.cursor], true
}

func (m SidebarModel) pageSize() int {
	// border (2) + title (1) + blank (1) + hint (1)
	n := m.height - 5
	if n < 1 {
		n = 1
	}
	return n
}

func (m *SidebarModel) clamp() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *SidebarModel) cancelRename() {
	m.renaming = false
	m.rename.Blur()
	m.rename.SetValue("")
}

// Init satisfies tea.Model.
func (m SidebarModel) Init() tea.Cmd {
	return nil
}

// Update handles keys while focused.
func (m SidebarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	if m.renaming {
		return m.updateRename(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if len(m.items) == 0 {
			break
		}
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.items) - 1
		}
		m.clamp()

	case key.Matches(keyMsg, m.keys.Down):
		if len(m.items) == 0 {
			break
		}
		if m.cursor < len(m.items)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
		m.clamp()

	case key.Matches(keyMsg, m.keys.Select):
		if it, ok := m.Highlighted(); ok {
			return m, func() tea.Msg { return SidebarSelect{ID: it.ID} }
		}

	case key.Matches(keyMsg, m.keys.New):
		return m, func() tea.Msg { return SidebarNew{} }

	case key.Matches(keyMsg, m.keys.Rename):
		if it, ok := m.Highlighted(); ok {
			m.renaming = true
			m.rename.SetValue(it.Title)
			m.rename.CursorEnd()
			return m, m.rename.Focus()
		}

	case key.Matches(keyMsg, m.keys.Delete):
		if it, ok := m.Highlighted(); ok {
			return m, func() tea.Msg { return SidebarDelete{ID: it.ID, Title: it.Title} }
		}
	}
	return m, nil
}

func (m SidebarModel) updateRename(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Cancel):
		m.cancelRename()
		return m, nil
	case key.Matches(k, m.keys.Select):
		it, ok := m.Highlighted()
		title := strings.TrimSpace(m.rename.Value())
		m.cancelRename()
		if !ok || title == "" || title == it.Title {
			return m, nil
		}
		return m, func() tea.Msg { return SidebarRename{ID: it.ID, Title: title} }
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(k)
	return m, cmd
}

// View renders the sidebar panel.
func (m SidebarModel) View() string {
	inner := m.width - 4
	if inner < 10 {
		inner = 10
	}

	var sb strings.Builder
	sb.WriteString(style.SidebarTitle.Render("Conversations") + "\n\n")

	if len(m.items) == 0 {
		sb.WriteString(style.Faint.Render("No conversations yet") + "\n")
	}

	end := m.offset + m.pageSize()
	if end > len(m.items) {
		end = len(m.items)
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderItem(i, inner))
		sb.WriteString("\n")
	}

	hint := "tab input · n new"
	if m.focused {
		hint = "enter open · r rename · d delete · n new"
		if m.renaming {
			hint = "enter save · esc cancel"
		}
	}
	if len(m.items) > m.pageSize() {
		hint = fmt.Sprintf("%d/%d · %s", m.cursor+1, len(m.items), hint)
	}
	sb.WriteString(style.Hint.Render(truncate(hint, inner)))

	box := style.SidebarBox
	if m.focused {
		box = style.SidebarFocused
	}
	return box.Width(m.width - 2).Height(m.height - 2).Render(sb.String())
}

func (m SidebarModel) renderItem(i, inner int) string {
	it := m.items[i]
	isCursor := m.focused && i == m.cursor

	cursor := "  "
	if isCursor {
		cursor = style.SidebarCursor.Render("> ")
	}

	marker := " "
	if m.pending[it.ID] {
		marker = style.SidebarPending.Render(m.frame)
	}

	if isCursor && m.renaming {
		return cursor + marker + " " + m.rename.View()
	}

	title := it.Title
	if title == "" {
		title = "Untitled"
	}
	title = truncate(title, inner-4)

	nameStyle := style.SidebarItem
	if it.ID == m.current {
		nameStyle = style.SidebarActive
	}
	if isCursor {
		nameStyle = nameStyle.Bold(true)
	}
	return cursor + marker + " " + nameStyle.Render(title)
}

// truncate shortens s to at most w cells, adding an ellipsis.
func truncate(s string, w int) string {
	if w <= 1 || lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > w-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
