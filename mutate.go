package discussions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// MarkRead marks a discussion as read for the calling user and returns
// the updated recipient row.
//
// Idempotent: marking an already-read discussion returns the existing
// row with its original ReadAt. Deleted discussions stay deleted.
func (c *userClient) MarkRead(ctx context.Context, discussionID string) (*Recipient, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.mark_read",
		attribute.String("user.id", c.userID),
		attribute.String("discussion.id", discussionID),
	)

	now := time.Now().UTC()
	rcpt, transitioned, err := c.service.store.MarkRead(ctx, c.userID, discussionID, now)
	c.service.otel.recordRead(ctx, err)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	// Publish only for a transition to read, not for repeat calls. The
	// store reports the transition; comparing timestamps would break on
	// backends that truncate ReadAt below nanosecond precision.
	if transitioned && rcpt.ReadAt != nil {
		if err := c.service.events.DiscussionRead.Publish(ctx, DiscussionReadEvent{
			DiscussionID: discussionID,
			UserID:       c.userID,
			ReadAt:       *rcpt.ReadAt,
		}); err != nil {
			if c.service.opts.eventErrorsFatal {
				return rcpt, &EventPublishError{
					Event:        "DiscussionRead",
					DiscussionID: discussionID,
					Err:          err,
				}
			}
			c.service.opts.safeEventPublishFailure("DiscussionRead", err)
		}
	}

	return rcpt, nil
}

// Delete removes a discussion from the calling user's views.
//
// If the user started the discussion, their sent copy is hidden. If the
// user received it, their inbox entry is marked deleted. Either way the
// discussion and its messages remain in storage for the other
// participants. Idempotent.
func (c *userClient) Delete(ctx context.Context, discussionID string) error {
	if err := c.checkAccess(); err != nil {
		return err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.delete",
		attribute.String("user.id", c.userID),
		attribute.String("discussion.id", discussionID),
	)

	asSender, transitioned, err := c.delete(ctx, discussionID)
	c.service.otel.recordDelete(ctx, asSender, err)
	endSpan(err)
	if err != nil {
		return err
	}
	// Repeat deletes are no-ops and publish nothing.
	if !transitioned {
		return nil
	}

	if err := c.service.events.DiscussionDeleted.Publish(ctx, DiscussionDeletedEvent{
		DiscussionID: discussionID,
		UserID:       c.userID,
		DeletedAt:    time.Now().UTC(),
	}); err != nil {
		if c.service.opts.eventErrorsFatal {
			return &EventPublishError{
				Event:        "DiscussionDeleted",
				DiscussionID: discussionID,
				Err:          err,
			}
		}
		c.service.opts.safeEventPublishFailure("DiscussionDeleted", err)
	}

	return nil
}

func (c *userClient) delete(ctx context.Context, discussionID string) (asSender, transitioned bool, err error) {
	disc, err := c.service.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return false, false, fmt.Errorf("get discussion: %w", err)
	}

	now := time.Now().UTC()

	if disc.SenderID == c.userID {
		transitioned, err := c.service.store.SoftDeleteDiscussion(ctx, discussionID, now)
		if err != nil {
			return true, false, fmt.Errorf("delete sent discussion: %w", err)
		}
		return true, transitioned, nil
	}

	_, transitioned, err = c.service.store.MarkDeleted(ctx, c.userID, discussionID, now)
	if err != nil {
		// A missing recipient row means the user never received this
		// discussion and may not delete it.
		if isNotFound(err) {
			return false, false, ErrUnauthorized
		}
		return false, false, fmt.Errorf("delete received discussion: %w", err)
	}
	return false, transitioned, nil
}

// DeleteMessage hides a single message from the calling user's view of
// the discussion. Only the message's author may delete it. Idempotent.
func (c *userClient) DeleteMessage(ctx context.Context, discussionID, messageID string) error {
	if err := c.checkAccess(); err != nil {
		return err
	}

	thread, err := c.service.store.GetThread(ctx, discussionID)
	if err != nil {
		return fmt.Errorf("get thread: %w", err)
	}

	var found bool
	for i := range thread.Messages {
		if thread.Messages[i].ID == messageID {
			if thread.Messages[i].SenderID != c.userID {
				return ErrUnauthorized
			}
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	if err := c.service.store.SoftDeleteMessage(ctx, messageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
