package model

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/style"
)

// StatusLine is the state rendered by StatusModel.
type StatusLine struct {
	Text    string
	Pending bool
	Loading bool
	Error   bool
}

// StatusModel renders the line above the input. It has three visual
// states:
//
//   - loading: spinner + "Loading messages…"
//   - pending: spinner + status text
//   - idle: status text only, red when it reports a failure
//
// The spinner also drives the pending markers of the header and sidebar
// through Frame.
type StatusModel struct {
	line    StatusLine
	spinner spinner.Model
	frame   int
}

// NewStatus returns an idle StatusModel.
func NewStatus() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = style.SpinnerStyle
	return StatusModel{spinner: s}
}

// Set replaces the displayed state.
func (m *StatusModel) Set(line StatusLine) {
	m.line = line
}

// Line returns the displayed state.
func (m StatusModel) Line() StatusLine { return m.line }

// Frame is the current spinner glyph without styling.
func (m StatusModel) Frame() string {
	frames := m.spinner.Spinner.Frames
	return frames[m.frame%len(frames)]
}

// Init starts the spinner.
func (m StatusModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the spinner.
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	if cmd != nil {
		// spinner.Model keeps its frame private; mirror it.
		m.frame++
	}
	return m, cmd
}

// View renders the status line. An idle line without text renders as a
// single blank so the layout does not jump.
func (m StatusModel) View() string {
	switch {
	case m.line.Loading:
		return style.StatusBar.Render(m.spinner.View() + " Loading messages…")
	case m.line.Pending:
		text := m.line.Text
		if text == "" {
			text = "Waiting for reply…"
		}
		return style.StatusBar.Render(m.spinner.View() + " " + text)
	case m.line.Text == "":
		return " "
	case m.line.Error:
		return style.StatusError.Render(m.line.Text)
	default:
		return style.StatusBar.Render(m.line.Text)
	}
}
