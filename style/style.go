package style

import "github.com/charmbracelet/lipgloss"

// Colors of the active theme. SetTheme replaces them.
var (
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Dim       lipgloss.Color
	Border    lipgloss.Color

	MsgBorderUser   lipgloss.Color
	MsgBorderModel  lipgloss.Color
	MsgBorderSystem lipgloss.Color
	MsgBorderError  lipgloss.Color
)

// Styles derived from the active colors.
var (
	Bold      lipgloss.Style
	Faint     lipgloss.Style
	ErrorText lipgloss.Style
	Hint      lipgloss.Style

	// Header
	HeaderTitle  lipgloss.Style
	HeaderDetail lipgloss.Style
	Connected    lipgloss.Style
	Offline      lipgloss.Style

	// Prompt
	PromptChar     lipgloss.Style
	PromptDisabled lipgloss.Style

	// Transcript
	UserLabel  lipgloss.Style
	ModelLabel lipgloss.Style
	UserBlock  lipgloss.Style
	ModelBlock lipgloss.Style
	NoteBlock  lipgloss.Style
	ImageTag   lipgloss.Style

	// Status line
	SpinnerStyle lipgloss.Style
	StatusBar    lipgloss.Style
	StatusError  lipgloss.Style

	// Sidebar
	SidebarBox     lipgloss.Style
	SidebarFocused lipgloss.Style
	SidebarTitle   lipgloss.Style
	SidebarCursor  lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarPending lipgloss.Style

	// Confirm dialog
	DialogBorder     lipgloss.Style
	DialogSelected   lipgloss.Style
	DialogUnselected lipgloss.Style
)

func init() {
	apply(darkTheme)
}

func apply(t Theme) {
	Primary, Secondary = t.Primary, t.Secondary
	Success, Warning, Error = t.Success, t.Warning, t.Error
	Muted, Dim, Border = t.Muted, t.Dim, t.Border
	MsgBorderUser, MsgBorderModel = t.MsgBorderUser, t.MsgBorderModel
	MsgBorderSystem, MsgBorderError = t.MsgBorderSystem, t.MsgBorderError

	Bold = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Foreground(Muted)
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)
	Hint = lipgloss.NewStyle().Foreground(Dim)

	HeaderTitle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	HeaderDetail = lipgloss.NewStyle().
		Foreground(Muted)
	Connected = lipgloss.NewStyle().Foreground(Success)
	Offline = lipgloss.NewStyle().Foreground(Warning)

	PromptChar = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	PromptDisabled = lipgloss.NewStyle().
		Foreground(Dim)

	UserLabel = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)
	ModelLabel = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	// Left-border blocks per role.
	UserBlock = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(MsgBorderUser).
		PaddingLeft(1)
	ModelBlock = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(MsgBorderModel).
		PaddingLeft(1)
	NoteBlock = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(MsgBorderSystem).
		Foreground(Muted).
		PaddingLeft(1)
	ImageTag = lipgloss.NewStyle().
		Foreground(Secondary).
		Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(Primary)
	StatusBar = lipgloss.NewStyle().
		Foreground(Muted).
		PaddingLeft(1)
	StatusError = lipgloss.NewStyle().
		Foreground(Error).
		PaddingLeft(1)

	SidebarBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	SidebarFocused = SidebarBox.
		BorderForeground(Primary)
	SidebarTitle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	SidebarCursor = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	SidebarActive = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)
	SidebarItem = lipgloss.NewStyle()
	SidebarPending = lipgloss.NewStyle().
		Foreground(Warning)

	DialogBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Error).
		Padding(1, 2)
	DialogSelected = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	DialogUnselected = lipgloss.NewStyle().
		Foreground(Muted)
}
