package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jpfa/chat-tui/chat"
)

// ErrUnauthorized matches API errors for 401 and 403 answers.
var ErrUnauthorized = errors.New("unauthorized")

// ChatRequest for POST /chat.
type ChatRequest struct {
	Query          string  `json:"query"`
	ConversationID chat.ID `json:"conversation_id"`
}

// RenameRequest for PUT /conversations/{id}.
type RenameRequest struct {
	Title string `json:"title"`
}

// ErrorResponse is the JSON error body. Backends disagree on the field
// name, so both are read.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (e ErrorResponse) message() string {
	switch {
	case e.Error != "" && e.Detail != "":
		return e.Error + ": " + e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Detail
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}
