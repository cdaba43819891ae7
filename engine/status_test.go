package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jpfa/chat-tui/chat"
)

func TestStatusStore_MergesSingleEntry(t *testing.T) {
	s := NewStatusStore()
	assert.Equal(t, "", s.Status("1"))
	assert.False(t, s.IsPending("1"))

	s.SetStatus("1", "working")
	s.SetPending("1", true)
	s.SetStatus("2", "other")

	s.SetStatus("1", "")
	assert.True(t, s.IsPending("1"), "status writes keep the pending flag")
	s.SetPending("2", true)
	assert.Equal(t, "other", s.Status("2"), "pending writes keep the text")

	assert.Equal(t, map[chat.ID]StatusEntry{
		"1": {Text: "", Pending: true},
		"2": {Text: "other", Pending: true},
	}, s.Snapshot())
}

func TestStatusStore_SnapshotIsCopy(t *testing.T) {
	s := NewStatusStore()
	s.SetPending(chat.Draft, true)
	snap := s.Snapshot()
	snap[chat.Draft] = StatusEntry{}
	assert.True(t, s.IsPending(chat.Draft))
}

func TestTracker_Select(t *testing.T) {
	tr := NewTracker(chat.Draft)
	assert.Equal(t, chat.Draft, tr.Current())
	assert.False(t, tr.Select(chat.Draft))
	assert.True(t, tr.Select("1"))
	assert.False(t, tr.Select("1"))
	assert.Equal(t, chat.ID("1"), tr.Current())

	var zero Tracker
	assert.Equal(t, chat.Draft, zero.Current())
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Append(chat.UserMessage("a"))
	tr.Append(chat.ModelMessage("b"))
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, uint64(2), tr.Version())

	msgs := tr.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "a", tr.Messages()[0].Content)

	tr.Reset([]chat.Message{chat.ModelMessage("x")})
	assert.Equal(t, []chat.Message{chat.ModelMessage("x")}, tr.Messages())
	tr.Reset(nil)
	assert.Zero(t, tr.Len())
}

func TestParseFrame(t *testing.T) {
	ev, ok, err := ParseFrame([]byte(`{"type":"status","conversation_id":"3","message":"m"}`))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Event{Type: EventStatus, ConversationID: "3", Message: "m"}, ev)
	assert.False(t, ev.IsTerminal())

	_, ok, err = ParseFrame([]byte(KeepAlive))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ParseFrame([]byte(`{bad`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.False(t, ok)
}
