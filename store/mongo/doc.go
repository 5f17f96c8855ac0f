package mongo

import (
	"time"

	"github.com/rbaliyan/discussions/store"
)

// Document types use uuid strings as _id so identifiers stay uniform
// across backends.

type discussionDoc struct {
	ID              string     `bson:"_id"`
	SenderID        string     `bson:"sender_id"`
	Subject         string     `bson:"subject"`
	CreatedAt       time.Time  `bson:"created_at"`
	SenderDeletedAt *time.Time `bson:"sender_deleted_at,omitempty"`
}

type messageDoc struct {
	ID              string     `bson:"_id"`
	DiscussionID    string     `bson:"discussion_id"`
	SenderID        string     `bson:"sender_id"`
	Body            string     `bson:"body"`
	SentAt          time.Time  `bson:"sent_at"`
	SenderDeletedAt *time.Time `bson:"sender_deleted_at,omitempty"`
}

type recipientDoc struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"user_id"`
	DiscussionID string     `bson:"discussion_id"`
	Status       string     `bson:"status"`
	ReadAt       *time.Time `bson:"read_at,omitempty"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty"`
}

type contactDoc struct {
	ID                 string    `bson:"_id"`
	FromUserID         string    `bson:"from_user_id"`
	ToUserID           string    `bson:"to_user_id"`
	PairKey            string    `bson:"pair_key"`
	LatestDiscussionID string    `bson:"latest_discussion_id"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func docToDiscussion(d *discussionDoc) store.Discussion {
	return store.Discussion{
		ID:              d.ID,
		SenderID:        d.SenderID,
		Subject:         d.Subject,
		CreatedAt:       d.CreatedAt,
		SenderDeletedAt: d.SenderDeletedAt,
	}
}

func docToMessage(m *messageDoc) store.Message {
	return store.Message{
		ID:              m.ID,
		DiscussionID:    m.DiscussionID,
		SenderID:        m.SenderID,
		Body:            m.Body,
		SentAt:          m.SentAt,
		SenderDeletedAt: m.SenderDeletedAt,
	}
}

func docToRecipient(r *recipientDoc) store.Recipient {
	return store.Recipient{
		ID:           r.ID,
		UserID:       r.UserID,
		DiscussionID: r.DiscussionID,
		Status:       store.RecipientStatus(r.Status),
		ReadAt:       r.ReadAt,
		DeletedAt:    r.DeletedAt,
	}
}

func docToContact(c *contactDoc) store.Contact {
	return store.Contact{
		ID:                 c.ID,
		FromUserID:         c.FromUserID,
		ToUserID:           c.ToUserID,
		PairKey:            c.PairKey,
		LatestDiscussionID: c.LatestDiscussionID,
		UpdatedAt:          c.UpdatedAt,
	}
}
