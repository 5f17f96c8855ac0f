// Package store provides interfaces and types for discussion storage.
// Implementations are in store/postgres, store/mongo, and store/memory
// subpackages.
//
// # Architectural Principle: No Distributed Locks
//
// All concurrency concerns are handled at the database layer:
//
//  1. Transactional composition: opening a discussion writes the
//     discussion row, its first message, one recipient row per unique
//     addressee, and the contact upserts as a single atomic unit.
//     Partial state is never observable.
//
//  2. Idempotency via unique constraints: the contact registry enforces
//     one record per unordered user pair through a unique index on the
//     canonical pair key. A find-or-create that loses the insert race
//     observes the constraint violation and retries as an update.
//
//  3. Soft deletes only: no user action physically removes a row, so
//     concurrent readers never observe a vanished record, only a
//     status flag.
package store

import (
	"context"
	"time"
)

// Store is the storage interface for the discussions service.
//
// All operations must be safe for concurrent use. Implementations must
// use database-level atomicity (transactions, atomic upserts) rather
// than external locking mechanisms. See package documentation.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	DiscussionStore
	RecipientStore
	ContactStore
	StatsStore
}

// DiscussionStore owns discussions and their messages.
type DiscussionStore interface {
	// CreateDiscussion atomically creates a discussion, its first
	// message, one recipient row per unique entry in data.RecipientIDs,
	// and upserts a contact record per (sender, recipient) pair.
	//
	// This operation MUST be atomic - either every row is persisted or
	// none are. Returns ErrEmptyBody or ErrEmptyRecipients on invalid
	// input without touching storage.
	CreateDiscussion(ctx context.Context, data ComposeData) (*Thread, error)

	// GetDiscussion retrieves a discussion by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetDiscussion(ctx context.Context, id string) (*Discussion, error)

	// GetThread retrieves a discussion with its messages ordered by
	// SentAt descending and all recipient rows.
	GetThread(ctx context.Context, discussionID string) (*Thread, error)

	// AddMessage appends a message to an existing discussion. An empty
	// senderID defaults to the discussion's sender. When resetRead is
	// true, every recipient row except the message sender's flips back
	// to unread in the same atomic unit.
	//
	// The recipient list is never altered by a reply.
	AddMessage(ctx context.Context, discussionID, senderID, body string, resetRead bool) (*Message, error)

	// SoftDeleteDiscussion sets the sender's soft-delete marker.
	// The discussion stays visible to recipients. The bool reports
	// whether this call set the marker; repeats return false.
	SoftDeleteDiscussion(ctx context.Context, discussionID string, at time.Time) (bool, error)

	// SoftDeleteMessage sets the sender's soft-delete marker on a
	// single message, independent of the discussion-level marker.
	SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) error

	// SentDiscussions lists discussions opened by senderID that the
	// sender has not soft-deleted, newest first.
	SentDiscussions(ctx context.Context, senderID string, opts ListOptions) ([]Discussion, error)
}

// RecipientStore owns per-(user, discussion) status rows.
type RecipientStore interface {
	// GetRecipient retrieves the recipient row for (userID, discussionID).
	// Returns ErrNotFound if the user is not a recipient.
	GetRecipient(ctx context.Context, userID, discussionID string) (*Recipient, error)

	// MarkRead sets status=read and records ReadAt. Idempotent:
	// repeated calls after the first read are no-ops and keep the
	// original ReadAt. A deleted row stays deleted. The bool reports
	// whether this call performed the unread-to-read transition;
	// callers must not infer the transition from ReadAt, which loses
	// precision round-tripping through some backends.
	MarkRead(ctx context.Context, userID, discussionID string, at time.Time) (*Recipient, bool, error)

	// MarkDeleted sets status=deleted and records DeletedAt.
	// Idempotent. Never removes the row. The bool reports whether this
	// call performed the transition; repeats return false.
	MarkDeleted(ctx context.Context, userID, discussionID string, at time.Time) (*Recipient, bool, error)

	// Inbox lists the user's non-deleted recipient rows joined with
	// their discussions, ordered by discussion CreatedAt descending.
	Inbox(ctx context.Context, userID string, opts ListOptions) ([]InboxEntry, error)
}

// ContactStore owns the derived most-recent-discussion records.
//
// Concurrency: UpsertContact is a find-or-create subject to insert
// races. Implementations enforce uniqueness on the canonical pair key
// and treat a constraint violation as "someone else won the race" -
// retrying as an update rather than surfacing the conflict.
type ContactStore interface {
	// UpsertContact points the contact record for the pair at
	// discussionID, creating the record on first contact. Direction of
	// an existing record is preserved; (A,B) and (B,A) address the
	// same record.
	UpsertContact(ctx context.Context, fromUserID, toUserID, discussionID string) (*Contact, error)

	// GetContact retrieves the contact record for a pair in either
	// direction. Returns ErrNotFound when the users never exchanged a
	// discussion.
	GetContact(ctx context.Context, userA, userB string) (*Contact, error)

	// ContactsFor lists every contact record involving userID, most
	// recently updated first.
	ContactsFor(ctx context.Context, userID string, opts ListOptions) ([]Contact, error)
}

// StatsStore provides aggregate per-user counts.
type StatsStore interface {
	// DiscussionStats returns aggregate counts for one user.
	DiscussionStats(ctx context.Context, userID string) (*DiscussionStats, error)
}

// DedupeRecipients returns the unique recipient IDs in first-seen order.
// Duplicates in a compose request collapse to one recipient row.
func DedupeRecipients(recipientIDs []string) []string {
	seen := make(map[string]bool, len(recipientIDs))
	unique := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
