// Package store persists conversations to a BoltDB file so history
// survives restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"persona/internal/capability"
	"persona/internal/logging"
)

var ErrNotFound = errors.New("not found")

var conversationsBucket = []byte("conversations")

// Conversation is one chat session with its full message history.
type Conversation struct {
	ID        string               `json:"id"`
	Character string               `json:"character,omitempty"`
	Messages  []capability.Message `json:"messages"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ConversationStore persists conversations in BoltDB.
type ConversationStore struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*ConversationStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("conversation store open at %s", path)
	return &ConversationStore{db: db}, nil
}

func (s *ConversationStore) Close() error { return s.db.Close() }

// Create starts a new conversation, optionally bound to a character.
func (s *ConversationStore) Create(character string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Character: character,
		Messages:  []capability.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get loads one conversation by id.
func (s *ConversationStore) Get(id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(conversationsBucket).Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessage adds one message to a conversation's history.
func (s *ConversationStore) AppendMessage(id, role, content string) (*Conversation, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	conv.Messages = append(conv.Messages, capability.Message{Role: role, Content: content})
	conv.UpdatedAt = time.Now().UTC()
	if err := s.put(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns every conversation, most recently updated first.
func (s *ConversationStore) List() ([]*Conversation, error) {
	var out []*Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(_, raw []byte) error {
			var conv Conversation
			if err := json.Unmarshal(raw, &conv); err != nil {
				return err
			}
			out = append(out, &conv)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes a conversation. Deleting an unknown id is an error.
func (s *ConversationStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		if bkt.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bkt.Delete([]byte(id))
	})
}

func (s *ConversationStore) put(conv *Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte(conv.ID), raw)
	})
}
