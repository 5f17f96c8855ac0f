package discussions

import "context"

// User contains resolved information about a participant.
type User struct {
	// ID is the unique user identifier.
	ID string
	// Name is the display name of the user.
	Name string
	// Email is the user's email address (optional).
	Email string
}

// UserDirectory maps user IDs to user information.
// Implementations should be safe for concurrent use.
//
// Example use cases:
//   - Populate sender display names in inbox views
//   - Label contacts with names instead of raw IDs
//   - Validate that recipient IDs refer to real users
type UserDirectory interface {
	// Resolve returns user information for a single user ID.
	// Returns an error if the user ID is unknown.
	Resolve(ctx context.Context, userID string) (*User, error)

	// ResolveBatch returns user information for multiple user IDs.
	// Results are in input order. Unknown IDs have nil entries.
	ResolveBatch(ctx context.Context, userIDs []string) ([]*User, error)
}
