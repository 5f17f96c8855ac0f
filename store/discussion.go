package store

import (
	"strings"
	"time"
	"unicode"
)

// RecipientStatus represents a recipient's view-state of a discussion.
type RecipientStatus string

// Recipient status constants. Status is the source of truth for a
// recipient row; ReadAt/DeletedAt record when the transition happened.
const (
	StatusUnread  RecipientStatus = "unread"
	StatusRead    RecipientStatus = "read"
	StatusDeleted RecipientStatus = "deleted"
)

// Discussion is a message thread opened by one sender toward one or
// more recipients. Immutable after creation except for the sender's
// soft-delete marker; content grows only by appending Messages.
type Discussion struct {
	ID              string
	SenderID        string
	Subject         string
	CreatedAt       time.Time
	SenderDeletedAt *time.Time
}

// SenderDeleted reports whether the sender has hidden this discussion
// from their own view. Recipients are unaffected.
func (d *Discussion) SenderDeleted() bool {
	return d.SenderDeletedAt != nil
}

// Message is a single text entry within a discussion.
// Never mutated after creation except for the sender's soft-delete marker.
type Message struct {
	ID              string
	DiscussionID    string
	SenderID        string
	Body            string
	SentAt          time.Time
	SenderDeletedAt *time.Time
}

// Preview returns the first n words of the body.
func (m *Message) Preview(n int) string {
	words := strings.FieldsFunc(m.Body, unicode.IsSpace)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}

// Recipient is a user's private view-state of a discussion.
// At most one row exists per (user, discussion) pair.
type Recipient struct {
	ID           string
	UserID       string
	DiscussionID string
	Status       RecipientStatus
	ReadAt       *time.Time
	DeletedAt    *time.Time
}

// IsRead preserves the legacy read predicate: it returns true exactly
// when ReadAt is unset, behaving as "is unread". Kept verbatim because
// existing consumers depend on the inverted contract; use HasRead for
// the intuitive check.
func (r *Recipient) IsRead() bool {
	return r.ReadAt == nil
}

// HasRead reports whether the recipient actually read the discussion.
func (r *Recipient) HasRead() bool {
	return r.Status == StatusRead
}

// Deleted reports whether the recipient removed the discussion from
// their inbox view.
func (r *Recipient) Deleted() bool {
	return r.Status == StatusDeleted
}

// Contact records the most recent discussion between two users.
// From/To keep the direction of first contact; uniqueness and lookup
// are direction-insensitive via PairKey.
type Contact struct {
	ID                 string
	FromUserID         string
	ToUserID           string
	PairKey            string
	LatestDiscussionID string
	UpdatedAt          time.Time
}

// OppositeUser returns the other user in the pair. When userID matches
// neither side it falls back to FromUserID, matching the legacy
// behavior rather than failing.
func (c *Contact) OppositeUser(userID string) string {
	if c.FromUserID == userID {
		return c.ToUserID
	}
	return c.FromUserID
}

// Label is a human-readable representation of the pair.
func (c *Contact) Label() string {
	return c.FromUserID + " and " + c.ToUserID
}

// PairKey canonicalizes a user pair into a direction-insensitive key.
// The storage uniqueness constraint for contacts is defined on this key
// so that a record created as (A,B) is found when querying (B,A).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ComposeData contains everything needed to open a new discussion.
// RecipientIDs may contain duplicates; they collapse to one recipient
// row per unique user.
type ComposeData struct {
	SenderID     string
	Subject      string
	Body         string
	RecipientIDs []string
}

// Thread is a discussion with its messages (newest first) and the
// per-recipient status rows.
type Thread struct {
	Discussion Discussion
	Messages   []Message
	Recipients []Recipient
}

// Recipient returns the recipient row for userID, or nil.
func (t *Thread) Recipient(userID string) *Recipient {
	for i := range t.Recipients {
		if t.Recipients[i].UserID == userID {
			return &t.Recipients[i]
		}
	}
	return nil
}

// HasParticipant reports whether userID is the sender or a recipient.
func (t *Thread) HasParticipant(userID string) bool {
	return t.Discussion.SenderID == userID || t.Recipient(userID) != nil
}

// InboxEntry pairs a recipient row with its discussion for inbox views.
type InboxEntry struct {
	Recipient  Recipient
	Discussion Discussion
}
