package discussions

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// UnreadCount returns the number of unread discussions in the calling
// user's inbox.
func (c *userClient) UnreadCount(ctx context.Context) (int64, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.UnreadCount, nil
}

// Stats returns aggregate inbox, unread, deleted and sent counters for
// the calling user.
func (c *userClient) Stats(ctx context.Context) (*DiscussionStats, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.stats",
		attribute.String("user.id", c.userID),
	)

	stats, err := c.service.store.DiscussionStats(ctx, c.userID)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
