// Package store keeps client-local state in a bbolt database under the
// profile directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jpfa/chat-tui/chat"
)

// Filename is the database file inside the profile directory.
const Filename = "state.db"

var (
	stateBucket    = []byte("state")
	currentConvKey = []byte("current_conversation_id")
	errStoreClosed = errors.New("store closed")
)

// State persists the last viewed conversation.
type State struct {
	db *bolt.DB
}

// Open opens (or creates) <profileDir>/state.db.
func Open(profileDir string) (*State, error) {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(profileDir, Filename)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state bucket: %w", err)
	}
	return &State{db: db}, nil
}

// LastConversation returns the stored selection, or chat.Draft when none
// was saved.
func (s *State) LastConversation() (chat.ID, error) {
	if s.db == nil {
		return chat.Draft, errStoreClosed
	}
	var id chat.ID
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get(currentConvKey)
		id = chat.ID(v)
		return nil
	})
	return id, err
}

// SetLastConversation stores id. Storing the draft clears the key.
func (s *State) SetLastConversation(id chat.ID) error {
	if id.IsDraft() {
		return s.ClearLastConversation()
	}
	if s.db == nil {
		return errStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put(currentConvKey, []byte(id))
	})
}

func (s *State) ClearLastConversation() error {
	if s.db == nil {
		return errStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete(currentConvKey)
	})
}

// Close releases the database file lock.
func (s *State) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
