package memory

import (
	"context"
	"sort"

	"github.com/rbaliyan/discussions/store"
)

// GetDiscussion retrieves a discussion by ID.
func (s *Store) GetDiscussion(ctx context.Context, id string) (*store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.discussions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDiscussion(d), nil
}

// GetThread retrieves a discussion with messages (newest first) and all
// recipient rows.
func (s *Store) GetThread(ctx context.Context, discussionID string) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if discussionID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.discussions[discussionID]
	if !ok {
		return nil, store.ErrNotFound
	}

	t := &store.Thread{Discussion: *cloneDiscussion(d)}
	for _, m := range s.messages {
		if m.DiscussionID == discussionID {
			t.Messages = append(t.Messages, *cloneMessage(m))
		}
	}
	sort.Slice(t.Messages, func(i, j int) bool {
		a, b := t.Messages[i], t.Messages[j]
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.After(b.SentAt)
		}
		return a.ID > b.ID
	})
	for _, r := range s.recipients {
		if r.DiscussionID == discussionID {
			t.Recipients = append(t.Recipients, *cloneRecipient(r))
		}
	}
	sort.Slice(t.Recipients, func(i, j int) bool {
		return t.Recipients[i].UserID < t.Recipients[j].UserID
	})
	return t, nil
}

// GetRecipient retrieves the recipient row for (userID, discussionID).
func (s *Store) GetRecipient(ctx context.Context, userID, discussionID string) (*store.Recipient, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipients[recipientKey(userID, discussionID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRecipient(r), nil
}

// Inbox lists the user's non-deleted recipient rows with their
// discussions, ordered by discussion CreatedAt descending.
func (s *Store) Inbox(ctx context.Context, userID string, opts store.ListOptions) ([]store.InboxEntry, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	opts = opts.Normalize(defaultLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []store.InboxEntry
	for _, r := range s.recipients {
		if r.UserID != userID || r.Status == store.StatusDeleted {
			continue
		}
		d, ok := s.discussions[r.DiscussionID]
		if !ok {
			continue
		}
		entries = append(entries, store.InboxEntry{
			Recipient:  *cloneRecipient(r),
			Discussion: *cloneDiscussion(d),
		})
	}
	sortEntries(entries, opts.SortOrder)
	return paginateEntries(entries, opts), nil
}

// SentDiscussions lists discussions opened by senderID, excluding
// sender-deleted ones, newest first.
func (s *Store) SentDiscussions(ctx context.Context, senderID string, opts store.ListOptions) ([]store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	opts = opts.Normalize(defaultLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Discussion
	for _, d := range s.discussions {
		if d.SenderID == senderID && d.SenderDeletedAt == nil {
			out = append(out, *cloneDiscussion(d))
		}
	}
	sortDiscussions(out, opts.SortOrder)
	return paginateDiscussions(out, opts), nil
}

// GetContact retrieves the contact record for a pair in either direction.
func (s *Store) GetContact(ctx context.Context, userA, userB string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[store.PairKey(userA, userB)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneContact(c), nil
}

// ContactsFor lists every contact record involving userID, most
// recently updated first.
func (s *Store) ContactsFor(ctx context.Context, userID string, opts store.ListOptions) ([]store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	opts = opts.Normalize(defaultLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Contact
	for _, c := range s.contacts {
		if c.FromUserID == userID || c.ToUserID == userID {
			out = append(out, *cloneContact(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.SortOrder == store.SortAsc {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return paginateContacts(out, opts), nil
}

// DiscussionStats returns aggregate counts for one user.
func (s *Store) DiscussionStats(ctx context.Context, userID string) (*store.DiscussionStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &store.DiscussionStats{}
	for _, r := range s.recipients {
		if r.UserID != userID {
			continue
		}
		switch r.Status {
		case store.StatusDeleted:
			stats.DeletedCount++
		case store.StatusUnread:
			stats.InboxTotal++
			stats.UnreadCount++
		default:
			stats.InboxTotal++
		}
	}
	for _, d := range s.discussions {
		if d.SenderID == userID && d.SenderDeletedAt == nil {
			stats.SentTotal++
		}
	}
	return stats, nil
}
