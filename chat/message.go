package chat

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one transcript entry. Content is either plain text or an inline
// data-URL image (see ParseImage).
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message authored by the local user.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ModelMessage builds a message authored by the backend.
func ModelMessage(content string) Message {
	return Message{Role: RoleModel, Content: content}
}

// IsImage reports whether the content is an inline image payload.
func (m Message) IsImage() bool {
	return IsImageContent(m.Content)
}

// Summary is a conversation list entry.
type Summary struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}
