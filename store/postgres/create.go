package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rbaliyan/discussions/store"
)

// CreateDiscussion writes the discussion, its first message, one
// recipient row per unique addressee, and the contact upserts in a
// single transaction.
func (s *Store) CreateDiscussion(ctx context.Context, data store.ComposeData) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(data.Body) == "" {
		return nil, store.ErrEmptyBody
	}
	recipientIDs := store.DedupeRecipients(data.RecipientIDs)
	if len(recipientIDs) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	discussionID := uuid.New().String()
	messageID := uuid.New().String()

	thread := &store.Thread{
		Discussion: store.Discussion{
			ID:        discussionID,
			SenderID:  data.SenderID,
			Subject:   data.Subject,
			CreatedAt: now,
		},
		Messages: []store.Message{{
			ID:           messageID,
			DiscussionID: discussionID,
			SenderID:     data.SenderID,
			Body:         data.Body,
			SentAt:       now,
		}},
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		insertDiscussion := fmt.Sprintf(`
			INSERT INTO %s (id, sender_id, subject, created_at)
			VALUES ($1, $2, $3, $4)
		`, s.opts.discussions)
		if _, err := tx.ExecContext(ctx, insertDiscussion,
			discussionID, data.SenderID, data.Subject, now); err != nil {
			return fmt.Errorf("insert discussion: %w", err)
		}

		insertMessage := fmt.Sprintf(`
			INSERT INTO %s (id, discussion_id, sender_id, body, sent_at)
			VALUES ($1, $2, $3, $4, $5)
		`, s.opts.messages)
		if _, err := tx.ExecContext(ctx, insertMessage,
			messageID, discussionID, data.SenderID, data.Body, now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		insertRecipient := fmt.Sprintf(`
			INSERT INTO %s (id, user_id, discussion_id, status)
			VALUES ($1, $2, $3, $4)
		`, s.opts.recipients)
		for _, userID := range recipientIDs {
			recipient := store.Recipient{
				ID:           uuid.New().String(),
				UserID:       userID,
				DiscussionID: discussionID,
				Status:       store.StatusUnread,
			}
			if _, err := tx.ExecContext(ctx, insertRecipient,
				recipient.ID, userID, discussionID, recipient.Status); err != nil {
				return fmt.Errorf("insert recipient: %w", err)
			}
			thread.Recipients = append(thread.Recipients, recipient)

			if err := s.upsertContactTx(ctx, tx, data.SenderID, userID, discussionID, now); err != nil {
				return fmt.Errorf("upsert contact: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return thread, nil
}

// AddMessage appends a message to an existing discussion. When
// resetRead is true, read recipients other than the sender flip back
// to unread in the same transaction.
func (s *Store) AddMessage(ctx context.Context, discussionID, senderID, body string, resetRead bool) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}
	if strings.TrimSpace(body) == "" {
		return nil, store.ErrEmptyBody
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	msg := &store.Message{
		ID:           uuid.New().String(),
		DiscussionID: discussionID,
		Body:         body,
		SentAt:       now,
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		getSender := fmt.Sprintf(`SELECT sender_id FROM %s WHERE id = $1`, s.opts.discussions)
		var discussionSender string
		if err := tx.QueryRowContext(ctx, getSender, discussionID).Scan(&discussionSender); err != nil {
			if err == sql.ErrNoRows {
				return store.ErrNotFound
			}
			return fmt.Errorf("get discussion: %w", err)
		}

		msg.SenderID = senderID
		if msg.SenderID == "" {
			msg.SenderID = discussionSender
		}

		insertMessage := fmt.Sprintf(`
			INSERT INTO %s (id, discussion_id, sender_id, body, sent_at)
			VALUES ($1, $2, $3, $4, $5)
		`, s.opts.messages)
		if _, err := tx.ExecContext(ctx, insertMessage,
			msg.ID, discussionID, msg.SenderID, body, now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if resetRead {
			reset := fmt.Sprintf(`
				UPDATE %s SET status = $1, read_at = NULL
				WHERE discussion_id = $2 AND user_id != $3 AND status = $4
			`, s.opts.recipients)
			if _, err := tx.ExecContext(ctx, reset,
				store.StatusUnread, discussionID, msg.SenderID, store.StatusRead); err != nil {
				return fmt.Errorf("reset read: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// upsertContactTx inserts or repoints the contact record inside tx.
// The unique pair_key index makes concurrent first contacts converge
// on one row; the loser's insert becomes an update.
func (s *Store) upsertContactTx(ctx context.Context, tx *sqlx.Tx, fromUserID, toUserID, discussionID string, now time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, from_user_id, to_user_id, pair_key, latest_discussion_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair_key) DO UPDATE
		SET latest_discussion_id = EXCLUDED.latest_discussion_id,
		    updated_at = EXCLUDED.updated_at
	`, s.opts.contacts)

	_, err := tx.ExecContext(ctx, query,
		uuid.New().String(), fromUserID, toUserID,
		store.PairKey(fromUserID, toUserID), discussionID, now)
	return err
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
