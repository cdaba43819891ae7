package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/style"
)

// SwitcherChoice is sent when the user picks a conversation.
type SwitcherChoice struct {
	ID chat.ID
}

// SwitcherDismiss is sent when the user closes the switcher.
type SwitcherDismiss struct{}

var (
	switcherEsc   = key.NewBinding(key.WithKeys("esc", "ctrl+c"))
	switcherEnter = key.NewBinding(key.WithKeys("enter"))
	switcherUp    = key.NewBinding(key.WithKeys("up", "ctrl+k"))
	switcherDown  = key.NewBinding(key.WithKeys("down", "ctrl+j"))
)

const switcherVisible = 12

// SwitcherModel is a filterable overlay for jumping between conversations
// by title.
type SwitcherModel struct {
	active   bool
	filter   textinput.Model
	items    []chat.Summary
	filtered []chat.Summary
	current  chat.ID
	cursor   int
	width    int
	height   int
}

// NewSwitcher constructs an inactive switcher.
func NewSwitcher() SwitcherModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter conversations..."
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(style.Primary)
	return SwitcherModel{filter: ti}
}

// Open activates the switcher over items.
func (m *SwitcherModel) Open(items []chat.Summary, current chat.ID, width, height int) tea.Cmd {
	m.active = true
	m.items = items
	m.filtered = items
	m.current = current
	m.cursor = 0
	m.width = width
	m.height = height
	m.filter.SetValue("")
	m.filter.Width = width/2 - 6
	return m.filter.Focus()
}

// IsActive reports whether the overlay is visible.
func (m SwitcherModel) IsActive() bool { return m.active }

func (m *SwitcherModel) close() {
	m.active = false
	m.filter.Blur()
}

// Update handles keyboard events while open.
func (m SwitcherModel) Update(msg tea.Msg) (SwitcherModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, switcherEsc):
			m.close()
			return m, func() tea.Msg { return SwitcherDismiss{} }

		case key.Matches(k, switcherEnter):
			if m.cursor < len(m.filtered) {
				id := m.filtered[m.cursor].ID
				m.close()
				return m, func() tea.Msg { return SwitcherChoice{ID: id} }
			}
			return m, nil

		case key.Matches(k, switcherUp):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(k, switcherDown):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	prev := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != prev {
		m.applyFilter()
	}
	return m, cmd
}

// applyFilter keeps items whose title or ID contains the query.
func (m *SwitcherModel) applyFilter() {
	m.cursor = 0
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if query == "" {
		m.filtered = m.items
		return
	}
	var results []chat.Summary
	for _, it := range m.items {
		if strings.Contains(strings.ToLower(it.Title), query) || strings.Contains(string(it.ID), query) {
			results = append(results, it)
		}
	}
	m.filtered = results
}

// visibleRange returns the window of filtered items around the cursor.
func (m SwitcherModel) visibleRange() (int, int) {
	if len(m.filtered) <= switcherVisible {
		return 0, len(m.filtered)
	}
	start := max(m.cursor-switcherVisible/2, 0)
	end := start + switcherVisible
	if end > len(m.filtered) {
		end = len(m.filtered)
		start = end - switcherVisible
	}
	return start, end
}

// View renders the switcher as a centered overlay.
func (m SwitcherModel) View() string {
	if !m.active {
		return ""
	}

	boxWidth := min(max(m.width/2, 50), m.width-4)

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Foreground(style.Primary).Bold(true).Render("Switch conversation"))
	sb.WriteByte('\n')
	sb.WriteString(m.filter.View())
	sb.WriteByte('\n')
	sb.WriteString(lipgloss.NewStyle().Foreground(style.Border).Render(strings.Repeat("─", max(boxWidth-6, 1))))
	sb.WriteByte('\n')

	if len(m.filtered) == 0 {
		sb.WriteString(style.Faint.Render("  No matching conversations"))
	}

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		it := m.filtered[i]
		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		title = truncate(title, boxWidth-10)

		var line string
		if i == m.cursor {
			line = style.SidebarCursor.Render("> ") + lipgloss.NewStyle().Foreground(style.Secondary).Bold(true).Render(title)
		} else {
			line = "  " + lipgloss.NewStyle().Foreground(style.Secondary).Render(title)
		}
		if it.ID == m.current {
			line += style.Hint.Render("  (open)")
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}

	if end < len(m.filtered) {
		sb.WriteByte('\n')
		sb.WriteString(style.Faint.Render("  ... and more (type to filter)"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.Border).
		Padding(1, 2).
		Width(boxWidth).
		Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
