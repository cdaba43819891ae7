package model

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/style"
)

// ConfirmDecision is emitted when the user answers the dialog.
type ConfirmDecision struct {
	ID        chat.ID
	Confirmed bool
}

var confirmOptions = []string{"Delete", "Cancel"}

// ConfirmModel asks before deleting a conversation. It is inactive until
// Ask is called.
type ConfirmModel struct {
	id       chat.ID
	title    string
	active   bool
	selected int // 0=Delete, 1=Cancel
	width    int
}

// NewConfirm returns an inactive dialog.
func NewConfirm() ConfirmModel {
	return ConfirmModel{}
}

// Ask opens the dialog for the conversation id. Cancel is preselected.
func (m *ConfirmModel) Ask(id chat.ID, title string) {
	m.id = id
	m.title = title
	m.selected = 1
	m.active = true
}

// Clear closes the dialog.
func (m *ConfirmModel) Clear() {
	m.active = false
	m.id = chat.Draft
	m.title = ""
	m.selected = 0
}

// IsActive reports whether the dialog is visible.
func (m ConfirmModel) IsActive() bool {
	return m.active
}

// SetWidth constrains the dialog to the given width.
func (m *ConfirmModel) SetWidth(w int) {
	m.width = w
}

// Init satisfies tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles keys while the dialog is open. y and n answer directly.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "left", "right", "tab", "h", "l":
		m.selected = 1 - m.selected
		return m, nil
	case "enter":
		return m.decide(m.selected == 0)
	case "y":
		return m.decide(true)
	case "n", "esc":
		return m.decide(false)
	}
	return m, nil
}

func (m ConfirmModel) decide(ok bool) (tea.Model, tea.Cmd) {
	id := m.id
	m.Clear()
	return m, func() tea.Msg { return ConfirmDecision{ID: id, Confirmed: ok} }
}

// View renders the dialog. Returns an empty string when inactive.
func (m ConfirmModel) View() string {
	if !m.active {
		return ""
	}
	title := m.title
	if title == "" {
		title = "this conversation"
	}
	body := style.Bold.Render("Delete conversation?") + "\n\n" +
		"\"" + title + "\" will be removed permanently.\n\n" +
		buildConfirmSelector(m.selected)

	box := style.DialogBorder
	if m.width > 0 {
		w := m.width - 2
		if w > 60 {
			w = 60
		}
		box = box.Width(w)
	}
	return box.Render(body)
}

// buildConfirmSelector returns the option line, e.g.:
//
//	○ Delete  > Cancel
func buildConfirmSelector(selected int) string {
	var parts []string
	for i, opt := range confirmOptions {
		if i == selected {
			parts = append(parts, style.DialogSelected.Render("> "+opt))
		} else {
			parts = append(parts, style.DialogUnselected.Render("○ "+opt))
		}
	}
	return strings.Join(parts, "  ")
}
