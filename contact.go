package discussions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Contacts lists the users the calling user has exchanged messages
// with, most recently active first by default. One record exists per
// pair regardless of who messaged whom first.
func (c *userClient) Contacts(ctx context.Context, opts ListOptions) ([]Contact, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	opts = c.clampListOptions(opts)

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.contacts",
		attribute.String("user.id", c.userID),
	)
	start := time.Now()

	contacts, err := c.service.store.ContactsFor(ctx, c.userID, opts)

	c.service.otel.recordList(ctx, time.Since(start), "contacts", len(contacts), err)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// ContactWith returns the contact record between the calling user and
// otherUserID, in either direction. Returns ErrNotFound if the two
// users never exchanged messages.
func (c *userClient) ContactWith(ctx context.Context, otherUserID string) (*Contact, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	if !isValidUserID(otherUserID) {
		return nil, ErrInvalidUserID
	}

	ctx, endSpan := c.service.otel.startSpan(ctx, "discussions.contact_with",
		attribute.String("user.id", c.userID),
	)

	contact, err := c.service.store.GetContact(ctx, c.userID, otherUserID)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}
