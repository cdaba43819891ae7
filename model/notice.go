package model

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpfa/chat-tui/style"
)

// NoticeLevel ranks a notice. Higher levels stay up longer and are the last
// to be evicted when the strip is full.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Keys for notices that replace each other instead of stacking.
const (
	NoticeKeyStream = "stream"
	NoticeKeyInput  = "input"
	NoticeKeyTheme  = "theme"
)

const maxNotices = 3

var noticeTTL = [...]time.Duration{
	NoticeInfo:    3 * time.Second,
	NoticeSuccess: 3 * time.Second,
	NoticeWarning: 6 * time.Second,
	NoticeError:   10 * time.Second,
}

type notice struct {
	key   string
	text  string
	level NoticeLevel
	count int
	until time.Time
}

// Notices is the strip above the transcript for outcomes that have no
// place in a conversation: renames, deletes, connection trouble, refused
// input. A notice posted under a key overwrites the live one with the same
// key in place. Unkeyed notices with identical text collapse into one line
// with a repeat count.
type Notices struct {
	items []notice
	clock func() time.Time
}

func NewNotices() Notices {
	return Notices{clock: time.Now}
}

func (n *Notices) now() time.Time {
	if n.clock == nil {
		return time.Now()
	}
	return n.clock()
}

// Post shows text at level. key may be empty.
func (n *Notices) Post(key string, level NoticeLevel, text string) {
	until := n.now().Add(noticeTTL[level])
	for i := range n.items {
		it := &n.items[i]
		if key != "" && it.key == key {
			*it = notice{key: key, text: text, level: level, count: 1, until: until}
			return
		}
		if key == "" && it.key == "" && it.text == text {
			it.count++
			it.level = max(it.level, level)
			it.until = until
			return
		}
	}
	n.items = append(n.items, notice{key: key, text: text, level: level, count: 1, until: until})
	if len(n.items) > maxNotices {
		n.evict()
	}
}

// Failf posts an unkeyed error.
func (n *Notices) Failf(format string, args ...any) {
	n.Post("", NoticeError, fmt.Sprintf(format, args...))
}

// evict drops the oldest notice of the lowest level present.
func (n *Notices) evict() {
	victim := 0
	for i, it := range n.items {
		if it.level < n.items[victim].level {
			victim = i
		}
	}
	n.items = append(n.items[:victim], n.items[victim+1:]...)
}

// Dismiss removes the notice posted under key and reports whether there
// was one.
func (n *Notices) Dismiss(key string) bool {
	for i, it := range n.items {
		if it.key == key {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Prune drops expired notices. Called on every msg.TickMsg.
func (n *Notices) Prune() {
	now := n.now()
	live := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.until) {
			live = append(live, it)
		}
	}
	n.items = live
}

// Len is the number of lines View renders.
func (n Notices) Len() int { return len(n.items) }

// View renders one line per notice, clipped to width.
func (n Notices) View(width int) string {
	if len(n.items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(n.items))
	for _, it := range n.items {
		mark, color := noticeMark(it.level)
		text := it.text
		if it.count > 1 {
			text = fmt.Sprintf("%s (x%d)", text, it.count)
		}
		st := lipgloss.NewStyle().Foreground(color).MaxWidth(max(width, 1))
		if it.level == NoticeError {
			st = st.Bold(true)
		}
		lines = append(lines, st.Render(mark+" "+text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func noticeMark(level NoticeLevel) (string, lipgloss.TerminalColor) {
	switch level {
	case NoticeSuccess:
		return "✓", style.Success
	case NoticeWarning:
		return "!", style.Warning
	case NoticeError:
		return "✘", style.Error
	}
	return "·", style.Secondary
}
