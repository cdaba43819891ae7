package app

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/markdown"
	"github.com/jpfa/chat-tui/model"
	"github.com/jpfa/chat-tui/style"
)

// imageSaved reports the outcome of /save.
type imageSaved struct {
	Path string
	Err  error
}

type command struct {
	name  string
	usage string
	help  string
}

var commands = []command{
	{"/new", "/new", "start a new conversation"},
	{"/rename", "/rename <title>", "rename the current conversation"},
	{"/delete", "/delete", "delete the current conversation"},
	{"/save", "/save [path]", "save the last image in the transcript"},
	{"/theme", "/theme <name>", "switch color theme"},
	{"/help", "/help", "show this help"},
	{"/quit", "/quit", "exit (also /exit)"},
	{"/exit", "", ""},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.name)
	}
	return names
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range commands {
		if c.usage == "" {
			continue
		}
		fmt.Fprintf(&b, "  %-16s %s\n", c.usage, c.help)
	}
	b.WriteString("Keys: tab focus sidebar · ctrl+s toggle sidebar · ctrl+n new · ctrl+p switch · ctrl+c twice quit")
	return b.String()
}

// runCommand executes a slash command typed into the input.
func (m Model) runCommand(line string) (Model, tea.Cmd) {
	m.input.Reset()
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/new":
		return m.newConversation()

	case "/rename":
		id := m.engine.Current()
		if id.IsDraft() {
			m.chat.AddError("Send a message first; the draft has no server identity yet.")
			return m, nil
		}
		if arg == "" {
			m.chat.AddError("Usage: /rename <title>")
			return m, nil
		}
		cmd := m.engine.Rename(id, arg)
		m.sync()
		return m, cmd

	case "/delete":
		return m.askDelete(m.engine.Current(), m.engine.Title())

	case "/save":
		img, ok := lastImage(m.engine.Messages())
		if !ok {
			m.chat.AddError("No image in this conversation.")
			return m, nil
		}
		path := arg
		if path == "" {
			path = filepath.Join(m.opts.ImageDir, imageFileName(m.engine.Current(), img))
		}
		return m, saveImageCmd(img, path)

	case "/theme":
		if arg == "" {
			m.chat.AddNote("Themes: " + strings.Join(style.ThemeNames, ", ") + " (current: " + style.CurrentThemeName + ")")
			return m, nil
		}
		if !style.SetTheme(arg) {
			m.chat.AddError(fmt.Sprintf("Unknown theme %q.", arg))
			return m, nil
		}
		markdown.SetStyle(arg)
		m.chat.Rerender()
		m.notices.Post(model.NoticeKeyTheme, model.NoticeInfo, "Theme set to "+arg)
		return m, nil

	case "/help":
		m.chat.AddNote(helpText())
		return m, nil

	case "/quit", "/exit":
		return m.quit()
	}

	m.chat.AddError(fmt.Sprintf("Unknown command %s. Type /help for a list.", name))
	return m, nil
}

// lastImage finds the most recent decodable image in msgs.
func lastImage(msgs []chat.Message) (chat.Image, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if !chat.IsImageContent(msg.Content) {
			continue
		}
		if img, err := chat.ParseImage(msg.Content); err == nil {
			return img, true
		}
	}
	return chat.Image{}, false
}

func imageFileName(id chat.ID, img chat.Image) string {
	base := "draft"
	if !id.IsDraft() {
		base = "conversation-" + string(id)
	}
	return base + img.Extension()
}

func saveImageCmd(img chat.Image, path string) tea.Cmd {
	return func() tea.Msg {
		return imageSaved{Path: path, Err: img.Save(path)}
	}
}
