package app

// Focus is the component receiving key presses.
type Focus int

const (
	FocusInput    Focus = iota // Message bar
	FocusSidebar               // Conversation list
	FocusConfirm               // Delete confirmation dialog
	FocusSwitcher              // Conversation switcher overlay
)

func (f Focus) String() string {
	switch f {
	case FocusInput:
		return "input"
	case FocusSidebar:
		return "sidebar"
	case FocusConfirm:
		return "confirm"
	case FocusSwitcher:
		return "switcher"
	default:
		return "unknown"
	}
}
