package discussions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/discussions/retry"
	"github.com/rbaliyan/discussions/store"
)

// ComposeRequest contains the data needed to start a new discussion.
type ComposeRequest struct {
	// Subject is an optional short topic line.
	Subject string
	// Body is the first message text. Required.
	Body string
	// RecipientIDs are the users the discussion is delivered to.
	// Duplicates are collapsed, order is preserved.
	RecipientIDs []string
}

// Compose starts a new discussion with a first message. The discussion,
// message, per-recipient rows and contact records are written
// atomically: either every recipient receives the discussion or none do.
//
// On event publish failure with WithEventErrorsFatal(true), returns both
// the thread AND an EventPublishError so the caller knows the compose
// succeeded.
func (c *userClient) Compose(ctx context.Context, req ComposeRequest) (*Thread, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	recipients := store.DedupeRecipients(req.RecipientIDs)

	limits := c.service.opts.getLimits()
	if err := ValidateSubject(req.Subject, limits); err != nil {
		return nil, err
	}
	if err := ValidateBody(req.Body, limits); err != nil {
		return nil, err
	}
	if err := ValidateRecipients(recipients, limits); err != nil {
		return nil, err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.compose",
		attribute.String("user.id", c.userID),
		attribute.Int("recipient.count", len(recipients)),
	)
	start := time.Now()

	// Limit concurrent composes. Blocks when at capacity.
	if err := c.service.composeSem.Acquire(ctx, 1); err != nil {
		endSpan(err)
		return nil, fmt.Errorf("acquire compose slot: %w", err)
	}
	defer c.service.composeSem.Release(1)

	data := store.ComposeData{
		SenderID:     c.userID,
		Subject:      req.Subject,
		Body:         req.Body,
		RecipientIDs: recipients,
	}

	var thread *store.Thread
	var err error
	if cfg := c.service.opts.composeRetry; cfg != nil {
		retryCfg := *cfg
		if retryCfg.IsRetryable == nil {
			retryCfg.IsRetryable = IsRetryableError
		}
		thread, err = retry.DoWithResult(ctx, retryCfg, func(ctx context.Context) (*store.Thread, error) {
			return c.service.store.CreateDiscussion(ctx, data)
		})
	} else {
		thread, err = c.service.store.CreateDiscussion(ctx, data)
	}

	c.service.otel.recordCompose(ctx, time.Since(start), len(recipients), err)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("create discussion: %w", err)
	}

	c.service.logger.Debug("discussion composed",
		"discussion_id", thread.Discussion.ID,
		"sender_id", c.userID,
		"recipients", len(recipients),
	)

	if err := c.service.events.DiscussionStarted.Publish(ctx, DiscussionStartedEvent{
		DiscussionID: thread.Discussion.ID,
		SenderID:     c.userID,
		RecipientIDs: recipients,
		Subject:      thread.Discussion.Subject,
		CreatedAt:    thread.Discussion.CreatedAt,
	}); err != nil {
		if c.service.opts.eventErrorsFatal {
			// Return the thread WITH an error - the compose succeeded
			// but the event failed.
			return thread, &EventPublishError{
				Event:        "DiscussionStarted",
				DiscussionID: thread.Discussion.ID,
				Err:          err,
			}
		}
		c.service.opts.safeEventPublishFailure("DiscussionStarted", err)
	}

	return thread, nil
}

// Reply adds a message to an existing discussion. The calling user must
// be a participant (the sender or one of the recipients).
//
// Replying does not change recipient read state unless the service was
// built with WithReplyResetsRead(true).
func (c *userClient) Reply(ctx context.Context, discussionID string, body string) (*Message, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	if err := ValidateBody(body, c.service.opts.getLimits()); err != nil {
		return nil, err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.reply",
		attribute.String("user.id", c.userID),
		attribute.String("discussion.id", discussionID),
	)
	start := time.Now()

	msg, err := c.reply(ctx, discussionID, body)

	c.service.otel.recordReply(ctx, time.Since(start), err)
	endSpan(err)
	if err != nil {
		return nil, err
	}

	if err := c.service.events.MessageAdded.Publish(ctx, MessageAddedEvent{
		DiscussionID: discussionID,
		MessageID:    msg.ID,
		SenderID:     c.userID,
		SentAt:       msg.SentAt,
	}); err != nil {
		if c.service.opts.eventErrorsFatal {
			return msg, &EventPublishError{
				Event:        "MessageAdded",
				DiscussionID: discussionID,
				Err:          err,
			}
		}
		c.service.opts.safeEventPublishFailure("MessageAdded", err)
	}

	return msg, nil
}

func (c *userClient) reply(ctx context.Context, discussionID, body string) (*Message, error) {
	thread, err := c.service.store.GetThread(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	if !thread.HasParticipant(c.userID) {
		return nil, ErrUnauthorized
	}

	msg, err := c.service.store.AddMessage(ctx, discussionID, c.userID, body, c.service.opts.replyResetsRead)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return msg, nil
}
