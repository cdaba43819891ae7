package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/style"
)

// ConnState is the push stream state shown in the header.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnOnline
	ConnReconnecting
	ConnOffline
	ConnUnauthorized
)

// HeaderModel renders the one-line header:
//
//	jpfa · Budget planning ⠋                       ● localhost:8000
//
// It is static; Update handles no messages.
type HeaderModel struct {
	title   string
	server  string
	pending bool
	frame   string
	conn    ConnState
	attempt int
	max     int
	width   int
}

// NewHeader returns a header for the given server host.
func NewHeader(server string) HeaderModel {
	return HeaderModel{server: server, title: "New Chat"}
}

func (m *HeaderModel) SetTitle(t string)   { m.title = t }
func (m *HeaderModel) SetWidth(w int)      { m.width = w }
func (m *HeaderModel) SetConn(c ConnState) { m.conn = c }

// SetPending shows frame after the title while the active conversation
// awaits a reply.
func (m *HeaderModel) SetPending(pending bool, frame string) {
	m.pending = pending
	m.frame = frame
}

// SetReconnecting records the reconnect attempt counter.
func (m *HeaderModel) SetReconnecting(attempt, max int) {
	m.conn = ConnReconnecting
	m.attempt = attempt
	m.max = max
}

// Init satisfies tea.Model.
func (m HeaderModel) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model.
func (m HeaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the header line.
func (m HeaderModel) View() string {
	sep := style.Faint.Render(" · ")
	left := style.HeaderTitle.Render("jpfa") + sep + style.Bold.Render(m.title)
	if m.pending {
		left += " " + style.SpinnerStyle.Render(m.frame)
	}

	right := m.connView()
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		return left + sep + right
	}
	return left + strings.Repeat(" ", pad) + right
}

func (m HeaderModel) connView() string {
	switch m.conn {
	case ConnOnline:
		return style.Connected.Render("●") + style.HeaderDetail.Render(" "+m.server)
	case ConnReconnecting:
		return style.Offline.Render("◌") + style.HeaderDetail.Render(fmt.Sprintf(" reconnecting %d/%d", m.attempt, m.max))
	case ConnOffline:
		return style.ErrorText.Render("○") + style.HeaderDetail.Render(" offline")
	case ConnUnauthorized:
		return style.ErrorText.Render("○") + style.HeaderDetail.Render(" unauthorized")
	default:
		return style.Offline.Render("◌") + style.HeaderDetail.Render(" connecting")
	}
}
