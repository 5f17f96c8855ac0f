// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/discussions/store"
)

// defaultLimit is the listing page size when none is given.
const defaultLimit = 20

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
//
// A single mutex guards all maps so that compose and reply are atomic
// the same way a database transaction would be.
type Store struct {
	mu          sync.RWMutex
	discussions map[string]*store.Discussion
	messages    map[string]*store.Message
	recipients  map[string]*store.Recipient // keyed by userID+"\x00"+discussionID
	contacts    map[string]*store.Contact   // keyed by PairKey
	connected   int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		discussions: make(map[string]*store.Discussion),
		messages:    make(map[string]*store.Message),
		recipients:  make(map[string]*store.Recipient),
		contacts:    make(map[string]*store.Contact),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

func recipientKey(userID, discussionID string) string {
	return userID + "\x00" + discussionID
}

// CreateDiscussion atomically creates the discussion, its first message,
// the recipient rows, and the contact upserts.
func (s *Store) CreateDiscussion(ctx context.Context, data store.ComposeData) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.Body) == "" {
		return nil, store.ErrEmptyBody
	}
	unique := store.DedupeRecipients(data.RecipientIDs)
	if len(unique) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	d := &store.Discussion{
		ID:        uuid.New().String(),
		SenderID:  data.SenderID,
		Subject:   data.Subject,
		CreatedAt: now,
	}
	m := &store.Message{
		ID:           uuid.New().String(),
		DiscussionID: d.ID,
		SenderID:     data.SenderID,
		Body:         data.Body,
		SentAt:       now,
	}

	recipients := make([]store.Recipient, 0, len(unique))
	for _, userID := range unique {
		r := &store.Recipient{
			ID:           uuid.New().String(),
			UserID:       userID,
			DiscussionID: d.ID,
			Status:       store.StatusUnread,
		}
		recipients = append(recipients, *r)
	}

	// All validation passed; persist everything under the one lock.
	s.discussions[d.ID] = d
	s.messages[m.ID] = m
	for i := range recipients {
		r := recipients[i]
		s.recipients[recipientKey(r.UserID, r.DiscussionID)] = &r
	}
	for _, userID := range unique {
		s.upsertContactLocked(data.SenderID, userID, d.ID, now)
	}

	return &store.Thread{
		Discussion: *d,
		Messages:   []store.Message{*m},
		Recipients: recipients,
	}, nil
}

// AddMessage appends a message to an existing discussion.
func (s *Store) AddMessage(ctx context.Context, discussionID, senderID, body string, resetRead bool) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, store.ErrEmptyBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.discussions[discussionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if senderID == "" {
		senderID = d.SenderID
	}

	m := &store.Message{
		ID:           uuid.New().String(),
		DiscussionID: discussionID,
		SenderID:     senderID,
		Body:         body,
		SentAt:       time.Now().UTC(),
	}
	s.messages[m.ID] = m

	if resetRead {
		for _, r := range s.recipients {
			if r.DiscussionID == discussionID && r.UserID != senderID && r.Status == store.StatusRead {
				r.Status = store.StatusUnread
				r.ReadAt = nil
			}
		}
	}

	return cloneMessage(m), nil
}

// SoftDeleteDiscussion sets the sender's soft-delete marker.
func (s *Store) SoftDeleteDiscussion(ctx context.Context, discussionID string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.discussions[discussionID]
	if !ok {
		return false, store.ErrNotFound
	}
	if d.SenderDeletedAt != nil {
		return false, nil
	}
	t := at.UTC()
	d.SenderDeletedAt = &t
	return true, nil
}

// SoftDeleteMessage sets the sender's soft-delete marker on one message.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return store.ErrNotFound
	}
	if m.SenderDeletedAt == nil {
		t := at.UTC()
		m.SenderDeletedAt = &t
	}
	return nil
}

// Compile-time check
var _ store.Store = (*Store)(nil)
