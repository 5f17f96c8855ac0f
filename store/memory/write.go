package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/discussions/store"
)

// MarkRead sets the recipient row to read. Idempotent: the first read
// wins and later calls keep the original ReadAt. Deleted rows are left
// untouched so a read cannot resurrect a deleted view.
func (s *Store) MarkRead(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipients[recipientKey(userID, discussionID)]
	if !ok {
		return nil, false, store.ErrNotFound
	}
	var transitioned bool
	if r.Status == store.StatusUnread {
		t := at.UTC()
		r.ReadAt = &t
		r.Status = store.StatusRead
		transitioned = true
	}
	return cloneRecipient(r), transitioned, nil
}

// MarkDeleted sets the recipient row to deleted. Idempotent; the row is
// never removed.
func (s *Store) MarkDeleted(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipients[recipientKey(userID, discussionID)]
	if !ok {
		return nil, false, store.ErrNotFound
	}
	var transitioned bool
	if r.Status != store.StatusDeleted {
		t := at.UTC()
		r.DeletedAt = &t
		r.Status = store.StatusDeleted
		transitioned = true
	}
	return cloneRecipient(r), transitioned, nil
}

// UpsertContact points the contact record for the pair at discussionID.
func (s *Store) UpsertContact(ctx context.Context, fromUserID, toUserID, discussionID string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.discussions[discussionID]; !ok {
		return nil, store.ErrNotFound
	}
	c := s.upsertContactLocked(fromUserID, toUserID, discussionID, time.Now().UTC())
	return cloneContact(c), nil
}

// upsertContactLocked is the find-or-create shared by compose and the
// standalone upsert. The map key is the canonical pair key, so the
// one-record-per-pair invariant holds by construction.
func (s *Store) upsertContactLocked(fromUserID, toUserID, discussionID string, now time.Time) *store.Contact {
	key := store.PairKey(fromUserID, toUserID)
	if c, ok := s.contacts[key]; ok {
		c.LatestDiscussionID = discussionID
		c.UpdatedAt = now
		return c
	}
	c := &store.Contact{
		ID:                 uuid.New().String(),
		FromUserID:         fromUserID,
		ToUserID:           toUserID,
		PairKey:            key,
		LatestDiscussionID: discussionID,
		UpdatedAt:          now,
	}
	s.contacts[key] = c
	return c
}
