package discussions

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Limits holds compose validation limits.
type Limits struct {
	MaxSubjectLength  int
	MaxBodySize       int
	MaxRecipientCount int
}

// DefaultLimits returns the default compose limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSubjectLength:  DefaultMaxSubjectLength,
		MaxBodySize:       DefaultMaxBodySize,
		MaxRecipientCount: DefaultMaxRecipientCount,
	}
}

// ValidateSubject validates a discussion subject against limits.
// The subject may be empty; only length is constrained.
func ValidateSubject(subject string, limits Limits) error {
	if len(subject) > limits.MaxSubjectLength {
		return fmt.Errorf("%w: subject length %d exceeds max %d", ErrSubjectTooLong, len(subject), limits.MaxSubjectLength)
	}
	if !utf8.ValidString(subject) {
		return &ValidationError{Field: "subject", Message: "invalid UTF-8"}
	}
	return nil
}

// ValidateBody validates a message body against limits.
// A body that is empty or only whitespace is rejected.
func ValidateBody(body string, limits Limits) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len(body) > limits.MaxBodySize {
		return fmt.Errorf("%w: body size %d exceeds max %d bytes", ErrBodyTooLarge, len(body), limits.MaxBodySize)
	}
	if !utf8.ValidString(body) {
		return &ValidationError{Field: "body", Message: "invalid UTF-8"}
	}
	return nil
}

// ValidateRecipients validates a deduplicated recipient list.
func ValidateRecipients(recipientIDs []string, limits Limits) error {
	if len(recipientIDs) == 0 {
		return ErrEmptyRecipients
	}
	if len(recipientIDs) > limits.MaxRecipientCount {
		return fmt.Errorf("%w: %d recipients exceeds max %d", ErrTooManyRecipients, len(recipientIDs), limits.MaxRecipientCount)
	}
	for _, id := range recipientIDs {
		if !isValidUserID(id) {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, id)
		}
	}
	return nil
}

// isValidUserID checks if a user ID is valid.
// Valid user IDs are non-empty and contain only safe characters.
func isValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	// Allow alphanumeric, hyphen, underscore, period, at-sign.
	// Disallow: *, :, /, \, |, spaces, and control characters.
	// The pipe is the pair-key separator and must never appear in an ID.
	for _, c := range userID {
		if c == '*' || c == ':' || c == '/' || c == '\\' || c == '|' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
			c < 32 || c == 127 {
			return false
		}
	}
	return true
}
