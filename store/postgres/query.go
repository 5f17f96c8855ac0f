package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rbaliyan/discussions/store"
)

const defaultLimit = 20

func (s *Store) GetDiscussion(ctx context.Context, id string) (*store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, discussionColumns, s.opts.discussions)

	d, err := scanDiscussion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get discussion: %w", err)
	}
	return d, nil
}

func (s *Store) GetThread(ctx context.Context, discussionID string) (*store.Thread, error) {
	d, err := s.GetDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	thread := &store.Thread{Discussion: *d}

	msgQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE discussion_id = $1
		ORDER BY sent_at DESC, id DESC
	`, messageColumns, s.opts.messages)

	rows, err := s.db.QueryContext(ctx, msgQuery, discussionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		thread.Messages = append(thread.Messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	recQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE discussion_id = $1
		ORDER BY user_id ASC
	`, recipientColumns, s.opts.recipients)

	recRows, err := s.db.QueryContext(ctx, recQuery, discussionID)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		r, err := scanRecipient(recRows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		thread.Recipients = append(thread.Recipients, *r)
	}
	if err := recRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return thread, nil
}

func (s *Store) GetRecipient(ctx context.Context, userID, discussionID string) (*store.Recipient, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = $1 AND discussion_id = $2
	`, recipientColumns, s.opts.recipients)

	r, err := scanRecipient(s.db.QueryRowContext(ctx, query, userID, discussionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return r, nil
}

func (s *Store) Inbox(ctx context.Context, userID string, opts store.ListOptions) ([]store.InboxEntry, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	query := fmt.Sprintf(`
		SELECT r.id, r.user_id, r.discussion_id, r.status, r.read_at, r.deleted_at,
		       d.id, d.sender_id, d.subject, d.created_at, d.sender_deleted_at
		FROM %s r
		JOIN %s d ON d.id = r.discussion_id
		WHERE r.user_id = $1 AND r.status != $2
		ORDER BY d.created_at %s, d.id DESC
		LIMIT $3 OFFSET $4
	`, s.opts.recipients, s.opts.discussions, orderDir(opts.SortOrder))

	rows, err := s.db.QueryContext(ctx, query, userID, store.StatusDeleted, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	defer rows.Close()

	var entries []store.InboxEntry
	for rows.Next() {
		var entry store.InboxEntry
		var readAt, recDeletedAt, senderDeletedAt sql.NullTime
		if err := rows.Scan(
			&entry.Recipient.ID, &entry.Recipient.UserID, &entry.Recipient.DiscussionID,
			&entry.Recipient.Status, &readAt, &recDeletedAt,
			&entry.Discussion.ID, &entry.Discussion.SenderID, &entry.Discussion.Subject,
			&entry.Discussion.CreatedAt, &senderDeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inbox entry: %w", err)
		}
		if readAt.Valid {
			entry.Recipient.ReadAt = &readAt.Time
		}
		if recDeletedAt.Valid {
			entry.Recipient.DeletedAt = &recDeletedAt.Time
		}
		if senderDeletedAt.Valid {
			entry.Discussion.SenderDeletedAt = &senderDeletedAt.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbox: %w", err)
	}

	return entries, nil
}

func (s *Store) SentDiscussions(ctx context.Context, senderID string, opts store.ListOptions) ([]store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE sender_id = $1 AND sender_deleted_at IS NULL
		ORDER BY created_at %s, id DESC
		LIMIT $2 OFFSET $3
	`, discussionColumns, s.opts.discussions, orderDir(opts.SortOrder))

	rows, err := s.db.QueryContext(ctx, query, senderID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query sent: %w", err)
	}
	defer rows.Close()

	var out []store.Discussion
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discussion: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent: %w", err)
	}

	return out, nil
}

func (s *Store) GetContact(ctx context.Context, userA, userB string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE pair_key = $1`, contactColumns, s.opts.contacts)

	c, err := scanContact(s.db.QueryRowContext(ctx, query, store.PairKey(userA, userB)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (s *Store) ContactsFor(ctx context.Context, userID string, opts store.ListOptions) ([]store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY updated_at %s, id DESC
		LIMIT $2 OFFSET $3
	`, contactColumns, s.opts.contacts, orderDir(opts.SortOrder))

	rows, err := s.db.QueryContext(ctx, query, userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []store.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	return out, nil
}

// DiscussionStats aggregates the recipient-side counters in one pass
// and the sent counter in a second query.
func (s *Store) DiscussionStats(ctx context.Context, userID string) (*store.DiscussionStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	stats := &store.DiscussionStats{}

	recipientQuery := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(CASE WHEN status != $2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $3 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
		FROM %s
		WHERE user_id = $1
	`, s.opts.recipients)

	err := s.db.QueryRowContext(ctx, recipientQuery,
		userID, store.StatusDeleted, store.StatusUnread,
	).Scan(&stats.InboxTotal, &stats.UnreadCount, &stats.DeletedCount)
	if err != nil {
		return nil, fmt.Errorf("query recipient stats: %w", err)
	}

	sentQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE sender_id = $1 AND sender_deleted_at IS NULL
	`, s.opts.discussions)

	if err := s.db.QueryRowContext(ctx, sentQuery, userID).Scan(&stats.SentTotal); err != nil {
		return nil, fmt.Errorf("query sent stats: %w", err)
	}

	return stats, nil
}
