package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/style"
)

// InputModel is the message bar with history navigation and slash command
// autocomplete.
//
// History navigation:
//   - Up arrow: walk backwards through submitted inputs
//   - Down arrow: walk forwards (towards the present)
//
// Autocomplete:
//   - Tab when the buffer starts with "/" cycles through matching commands
//
// While disabled the bar still accepts typing but shows why sending is
// blocked; the app decides what enter does.
type InputModel struct {
	ti         textinput.Model
	history    []string
	historyIdx int // points one past the last entry when not navigating

	commands   []string
	tabIdx     int // current autocomplete cursor (-1 = none)
	tabMatches []string

	disabled string // reason shown instead of the placeholder; "" = enabled
}

const inputPlaceholder = "Message, or type / for commands…"

// NewInput returns a ready-to-use InputModel.
func NewInput() InputModel {
	ti := textinput.New()
	ti.Placeholder = inputPlaceholder
	ti.Prompt = ""
	ti.CharLimit = 8192
	return InputModel{ti: ti, tabIdx: -1}
}

// SetCommands replaces the command list used for Tab autocomplete.
func (m *InputModel) SetCommands(cmds []string) {
	m.commands = cmds
}

// SetWidth sizes the text field to the terminal width minus the prompt.
func (m *InputModel) SetWidth(w int) {
	m.ti.Width = w - 4
}

// SetDisabled shows reason as the placeholder. An empty reason re-enables.
func (m *InputModel) SetDisabled(reason string) {
	m.disabled = reason
	if reason == "" {
		m.ti.Placeholder = inputPlaceholder
		return
	}
	m.ti.Placeholder = reason
}

// Disabled returns the current reason, or "".
func (m InputModel) Disabled() string { return m.disabled }

func (m *InputModel) Focus() tea.Cmd { return m.ti.Focus() }
func (m *InputModel) Blur()          { m.ti.Blur() }
func (m InputModel) Focused() bool   { return m.ti.Focused() }

// Value returns the current raw text in the input field.
func (m InputModel) Value() string {
	return m.ti.Value()
}

// SetValue replaces the buffer and moves the cursor to the end.
func (m *InputModel) SetValue(s string) {
	m.ti.SetValue(s)
	m.ti.CursorEnd()
	m.resetTab()
}

// Reset clears the input field and resets autocomplete state.
func (m *InputModel) Reset() {
	m.historyIdx = len(m.history)
	m.ti.SetValue("")
	m.resetTab()
}

// Submit appends text to history and then clears the field.
func (m *InputModel) Submit(text string) {
	if text != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != text) {
		m.history = append(m.history, text)
	}
	m.Reset()
}

func (m *InputModel) resetTab() {
	m.tabIdx = -1
	m.tabMatches = nil
}

// Init satisfies tea.Model.
func (m InputModel) Init() tea.Cmd {
	return nil
}

// Update intercepts Up/Down for history and Tab for autocomplete before
// delegating remaining keys to the underlying textinput.
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyUp:
			return m.navigateHistory(-1), nil
		case tea.KeyDown:
			return m.navigateHistory(+1), nil
		case tea.KeyTab:
			return m.cycleComplete(), nil
		default:
			m.resetTab()
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// View renders the prompt character followed by the textinput view.
func (m InputModel) View() string {
	prompt := style.PromptChar.Render("❯ ")
	if m.disabled != "" {
		prompt = style.PromptDisabled.Render("❯ ")
	}
	return prompt + m.ti.View()
}

// navigateHistory moves the history cursor by delta (-1 = older, +1 = newer).
func (m InputModel) navigateHistory(delta int) InputModel {
	if len(m.history) == 0 {
		return m
	}
	next := min(max(m.historyIdx+delta, 0), len(m.history))
	m.historyIdx = next

	if next == len(m.history) {
		m.ti.SetValue("")
	} else {
		m.ti.SetValue(m.history[next])
		m.ti.CursorEnd()
	}
	return m
}

// cycleComplete advances through autocomplete candidates. It only
// activates when the buffer starts with "/".
func (m InputModel) cycleComplete() InputModel {
	current := m.ti.Value()
	if !strings.HasPrefix(current, "/") {
		return m
	}

	if m.tabIdx == -1 || m.tabMatches == nil {
		m.tabMatches = matchCommands(m.commands, current)
		if len(m.tabMatches) == 0 {
			return m
		}
		m.tabIdx = 0
	} else {
		m.tabIdx = (m.tabIdx + 1) % len(m.tabMatches)
	}

	m.ti.SetValue(m.tabMatches[m.tabIdx])
	m.ti.CursorEnd()
	return m
}

// matchCommands returns all commands that have prefix as a prefix.
func matchCommands(commands []string, prefix string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
