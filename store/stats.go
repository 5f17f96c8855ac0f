package store

// DiscussionStats holds aggregate counts for one user's mailbox view.
type DiscussionStats struct {
	// InboxTotal is the number of non-deleted recipient rows.
	InboxTotal int64
	// UnreadCount is the number of unread recipient rows.
	UnreadCount int64
	// DeletedCount is the number of recipient rows the user removed
	// from their inbox view.
	DeletedCount int64
	// SentTotal is the number of discussions the user opened,
	// excluding sender-deleted ones.
	SentTotal int64
}
