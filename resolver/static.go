// Package resolver provides UserDirectory implementations.
package resolver

import (
	"context"
	"fmt"

	"github.com/rbaliyan/discussions"
)

// Static is a map-based UserDirectory for testing and simple deployments.
// It resolves user IDs from an in-memory map. Safe for concurrent use
// (read-only after creation).
type Static struct {
	users map[string]*discussions.User
}

// NewStatic creates a Static directory from a map of user ID to User.
// The map is copied to prevent external mutation.
func NewStatic(users map[string]*discussions.User) *Static {
	m := make(map[string]*discussions.User, len(users))
	for k, v := range users {
		m[k] = v
	}
	return &Static{users: m}
}

// Resolve returns user information for a single user ID.
func (s *Static) Resolve(_ context.Context, userID string) (*discussions.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return u, nil
}

// ResolveBatch returns user information for multiple user IDs.
// Unknown IDs have nil entries in the returned slice.
func (s *Static) ResolveBatch(_ context.Context, userIDs []string) ([]*discussions.User, error) {
	result := make([]*discussions.User, len(userIDs))
	for i, id := range userIDs {
		result[i] = s.users[id]
	}
	return result, nil
}
