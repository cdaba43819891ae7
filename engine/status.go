package engine

import (
	"maps"

	"github.com/jpfa/chat-tui/chat"
)

// StatusEntry is the transient state of one conversation. The zero value
// means idle with no status text.
type StatusEntry struct {
	Text    string
	Pending bool
}

// StatusStore maps conversation identities to their status entry. Entries
// are created on first write and never removed.
type StatusStore struct {
	entries map[chat.ID]StatusEntry
}

// NewStatusStore returns an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{entries: make(map[chat.ID]StatusEntry)}
}

// SetStatus replaces the status text of id, keeping its pending flag.
func (s *StatusStore) SetStatus(id chat.ID, text string) {
	e := s.entries[id]
	e.Text = text
	s.entries[id] = e
}

// SetPending replaces the pending flag of id, keeping its status text.
func (s *StatusStore) SetPending(id chat.ID, pending bool) {
	e := s.entries[id]
	e.Pending = pending
	s.entries[id] = e
}

// Status returns the status text of id, "" when unknown.
func (s *StatusStore) Status(id chat.ID) string {
	return s.entries[id].Text
}

// IsPending reports whether id has a request awaiting its reply.
func (s *StatusStore) IsPending(id chat.ID) bool {
	return s.entries[id].Pending
}

// Entry returns the full entry of id.
func (s *StatusStore) Entry(id chat.ID) StatusEntry {
	return s.entries[id]
}

// Snapshot returns a copy of every entry written so far.
func (s *StatusStore) Snapshot() map[chat.ID]StatusEntry {
	return maps.Clone(s.entries)
}
