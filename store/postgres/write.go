package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rbaliyan/discussions/store"
)

// MarkRead transitions an unread recipient row to read. Repeated calls
// and calls on a deleted row leave the row untouched and return it
// as-is; the first read wins.
func (s *Store) MarkRead(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, read_at = $2
		WHERE user_id = $3 AND discussion_id = $4 AND status = $5
		RETURNING %s
	`, s.opts.recipients, recipientColumns)

	r, err := scanRecipient(s.db.QueryRowContext(ctx, query,
		store.StatusRead, at.UTC(), userID, discussionID, store.StatusUnread))
	if err == nil {
		return r, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("mark read: %w", err)
	}

	// Already read or deleted; return the row unchanged.
	r, err = s.GetRecipient(ctx, userID, discussionID)
	return r, false, err
}

// MarkDeleted transitions a recipient row to deleted. Idempotent; the
// row is never removed.
func (s *Store) MarkDeleted(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, deleted_at = $2
		WHERE user_id = $3 AND discussion_id = $4 AND status != $1
		RETURNING %s
	`, s.opts.recipients, recipientColumns)

	r, err := scanRecipient(s.db.QueryRowContext(ctx, query,
		store.StatusDeleted, at.UTC(), userID, discussionID))
	if err == nil {
		return r, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("mark deleted: %w", err)
	}

	r, err = s.GetRecipient(ctx, userID, discussionID)
	return r, false, err
}

// SoftDeleteDiscussion sets the sender's delete marker once; later
// calls keep the original timestamp and report no transition.
func (s *Store) SoftDeleteDiscussion(ctx context.Context, discussionID string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET sender_deleted_at = $1
		WHERE id = $2 AND sender_deleted_at IS NULL
	`, s.opts.discussions)

	result, err := s.db.ExecContext(ctx, query, at.UTC(), discussionID)
	if err != nil {
		return false, fmt.Errorf("soft delete discussion: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// Distinguish missing from already deleted.
	exists := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, s.opts.discussions)
	var one int
	if err := s.db.QueryRowContext(ctx, exists, discussionID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, store.ErrNotFound
		}
		return false, fmt.Errorf("soft delete lookup: %w", err)
	}
	return false, nil
}

// SoftDeleteMessage sets the sender's delete marker on a single message.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(messageID); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET sender_deleted_at = COALESCE(sender_deleted_at, $1)
		WHERE id = $2
	`, s.opts.messages)

	result, err := s.db.ExecContext(ctx, query, at.UTC(), messageID)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// UpsertContact points the pair's contact record at discussionID,
// creating it on first contact. A lost insert race resolves to an
// update through the pair_key conflict target.
func (s *Store) UpsertContact(ctx context.Context, fromUserID, toUserID, discussionID string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	exists := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, s.opts.discussions)
	var one int
	if err := s.db.QueryRowContext(ctx, exists, discussionID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get discussion: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, from_user_id, to_user_id, pair_key, latest_discussion_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair_key) DO UPDATE
		SET latest_discussion_id = EXCLUDED.latest_discussion_id,
		    updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, s.opts.contacts, contactColumns)

	c, err := scanContact(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), fromUserID, toUserID,
		store.PairKey(fromUserID, toUserID), discussionID, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("upsert contact: %w", err)
	}

	return c, nil
}
