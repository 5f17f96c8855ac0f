package postgres

import (
	"database/sql"

	"github.com/rbaliyan/discussions/store"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const discussionColumns = `id, sender_id, subject, created_at, sender_deleted_at`

func scanDiscussion(row scanner) (*store.Discussion, error) {
	var d store.Discussion
	var deletedAt sql.NullTime
	if err := row.Scan(&d.ID, &d.SenderID, &d.Subject, &d.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		d.SenderDeletedAt = &deletedAt.Time
	}
	return &d, nil
}

const messageColumns = `id, discussion_id, sender_id, body, sent_at, sender_deleted_at`

func scanMessage(row scanner) (*store.Message, error) {
	var m store.Message
	var deletedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.DiscussionID, &m.SenderID, &m.Body, &m.SentAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		m.SenderDeletedAt = &deletedAt.Time
	}
	return &m, nil
}

const recipientColumns = `id, user_id, discussion_id, status, read_at, deleted_at`

func scanRecipient(row scanner) (*store.Recipient, error) {
	var r store.Recipient
	var readAt, deletedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.UserID, &r.DiscussionID, &r.Status, &readAt, &deletedAt); err != nil {
		return nil, err
	}
	if readAt.Valid {
		r.ReadAt = &readAt.Time
	}
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Time
	}
	return &r, nil
}

const contactColumns = `id, from_user_id, to_user_id, pair_key, latest_discussion_id, updated_at`

func scanContact(row scanner) (*store.Contact, error) {
	var c store.Contact
	if err := row.Scan(&c.ID, &c.FromUserID, &c.ToUserID, &c.PairKey, &c.LatestDiscussionID, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
