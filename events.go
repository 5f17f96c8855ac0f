package discussions

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for discussion events.
const (
	EventNameDiscussionStarted = "discussions.discussion.started"
	EventNameMessageAdded      = "discussions.message.added"
	EventNameDiscussionRead    = "discussions.discussion.read"
	EventNameDiscussionDeleted = "discussions.discussion.deleted"
)

// DiscussionStartedEvent is published when a new discussion is composed.
// This is the primary event for notifying recipients of new discussions.
type DiscussionStartedEvent struct {
	DiscussionID string    `json:"discussion_id"`
	SenderID     string    `json:"sender_id"`
	RecipientIDs []string  `json:"recipient_ids"`
	Subject      string    `json:"subject"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageAddedEvent is published when a reply is added to an existing
// discussion.
type MessageAddedEvent struct {
	DiscussionID string    `json:"discussion_id"`
	MessageID    string    `json:"message_id"`
	SenderID     string    `json:"sender_id"`
	SentAt       time.Time `json:"sent_at"`
}

// DiscussionReadEvent is published when a recipient marks a discussion
// as read. Use this for read receipts.
type DiscussionReadEvent struct {
	DiscussionID string    `json:"discussion_id"`
	UserID       string    `json:"user_id"`
	ReadAt       time.Time `json:"read_at"`
}

// DiscussionDeletedEvent is published when a participant removes a
// discussion from their view. The rows remain in storage.
type DiscussionDeletedEvent struct {
	DiscussionID string    `json:"discussion_id"`
	UserID       string    `json:"user_id"`
	DeletedAt    time.Time `json:"deleted_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().DiscussionStarted.Subscribe(ctx, handler)
//	svc.Events().MessageAdded.Subscribe(ctx, handler)
type ServiceEvents struct {
	// DiscussionStarted is published when a discussion is composed.
	DiscussionStarted event.Event[DiscussionStartedEvent]

	// MessageAdded is published when a reply lands in a discussion.
	MessageAdded event.Event[MessageAddedEvent]

	// DiscussionRead is published when a recipient reads a discussion.
	DiscussionRead event.Event[DiscussionReadEvent]

	// DiscussionDeleted is published when a participant hides a discussion.
	DiscussionDeleted event.Event[DiscussionDeletedEvent]
}

// newServiceEvents creates per-service event instances with a unique
// name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		DiscussionStarted: event.New[DiscussionStartedEvent](namePrefix + "." + EventNameDiscussionStarted),
		MessageAdded:      event.New[MessageAddedEvent](namePrefix + "." + EventNameMessageAdded),
		DiscussionRead:    event.New[DiscussionReadEvent](namePrefix + "." + EventNameDiscussionRead),
		DiscussionDeleted: event.New[DiscussionDeletedEvent](namePrefix + "." + EventNameDiscussionDeleted),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.DiscussionStarted); err != nil {
		return fmt.Errorf("register DiscussionStarted: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageAdded); err != nil {
		return fmt.Errorf("register MessageAdded: %w", err)
	}
	if err := event.Register(ctx, bus, events.DiscussionRead); err != nil {
		return fmt.Errorf("register DiscussionRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.DiscussionDeleted); err != nil {
		return fmt.Errorf("register DiscussionDeleted: %w", err)
	}
	return nil
}
