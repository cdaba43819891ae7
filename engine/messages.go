package engine

import "github.com/jpfa/chat-tui/chat"

// ConversationsLoaded carries the result of Refresh.
type ConversationsLoaded struct {
	Conversations []chat.Summary
	Err           error
}

// TranscriptLoaded carries the history fetched after a selection.
type TranscriptLoaded struct {
	ID       chat.ID
	Messages []chat.Message
	Err      error

	seq uint64
}

// Dispatched reports the outcome of issuing a chat request. A nil Err only
// means the server accepted it; the reply arrives on the stream.
type Dispatched struct {
	ID  chat.ID
	Err error
}

// Renamed reports the outcome of Rename.
type Renamed struct {
	ID    chat.ID
	Title string
	Err   error
}

// Deleted reports the outcome of Delete.
type Deleted struct {
	ID  chat.ID
	Err error
}
