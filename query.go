package discussions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// clampListOptions applies service limits to caller-supplied pagination.
func (c *userClient) clampListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = c.service.opts.defaultQueryLimit
	}
	if opts.Limit > c.service.opts.maxQueryLimit {
		opts.Limit = c.service.opts.maxQueryLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// Inbox lists discussions delivered to the calling user, excluding ones
// the user deleted. Ordered by discussion creation time, newest first by
// default.
func (c *userClient) Inbox(ctx context.Context, opts ListOptions) ([]InboxEntry, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	opts = c.clampListOptions(opts)

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.inbox",
		attribute.String("user.id", c.userID),
	)
	start := time.Now()

	entries, err := c.service.store.Inbox(ctx, c.userID, opts)

	c.service.otel.recordList(ctx, time.Since(start), "inbox", len(entries), err)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return entries, nil
}

// Sent lists discussions the calling user started, excluding ones the
// user deleted. Ordered by creation time, newest first by default.
func (c *userClient) Sent(ctx context.Context, opts ListOptions) ([]Discussion, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	opts = c.clampListOptions(opts)

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.sent",
		attribute.String("user.id", c.userID),
	)
	start := time.Now()

	sent, err := c.service.store.SentDiscussions(ctx, c.userID, opts)

	c.service.otel.recordList(ctx, time.Since(start), "sent", len(sent), err)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("list sent: %w", err)
	}
	return sent, nil
}

// Thread returns a discussion with all its messages and recipient rows.
// The calling user must be a participant.
func (c *userClient) Thread(ctx context.Context, discussionID string) (*Thread, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.thread",
		attribute.String("user.id", c.userID),
		attribute.String("discussion.id", discussionID),
	)

	thread, err := c.service.store.GetThread(ctx, discussionID)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("get thread: %w", err)
	}
	if !thread.HasParticipant(c.userID) {
		endSpan(ErrUnauthorized)
		return nil, ErrUnauthorized
	}

	endSpan(nil)
	return thread, nil
}
