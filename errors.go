package discussions

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/discussions/store"
)

// Sentinel errors for the discussions package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, discussions.ErrNotFound) matches both package-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when a discussion, message, or recipient
	// row cannot be found. Wraps store.ErrNotFound.
	ErrNotFound = fmt.Errorf("discussions: %w", store.ErrNotFound)

	// ErrUnauthorized is returned when the user is not a participant of
	// the discussion they are operating on.
	ErrUnauthorized = errors.New("discussions: unauthorized")

	// ErrInvalidDiscussion is returned for compose validation failures.
	ErrInvalidDiscussion = errors.New("discussions: invalid discussion")

	// ErrEmptyRecipients is returned when no recipients are provided.
	// Wraps store.ErrEmptyRecipients.
	ErrEmptyRecipients = fmt.Errorf("discussions: %w", store.ErrEmptyRecipients)

	// ErrEmptyBody is returned when a message body is empty or blank.
	// Wraps store.ErrEmptyBody.
	ErrEmptyBody = fmt.Errorf("discussions: %w", store.ErrEmptyBody)

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("discussions: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected.
	ErrNotConnected = fmt.Errorf("discussions: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected.
	ErrAlreadyConnected = fmt.Errorf("discussions: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid ID is provided.
	// Wraps store.ErrInvalidID.
	ErrInvalidID = fmt.Errorf("discussions: %w", store.ErrInvalidID)

	// ErrDuplicateEntry is returned when a duplicate entry is detected.
	// Wraps store.ErrDuplicateEntry.
	ErrDuplicateEntry = fmt.Errorf("discussions: %w", store.ErrDuplicateEntry)

	// ErrInvalidUserID is returned when a user ID contains invalid characters.
	ErrInvalidUserID = errors.New("discussions: invalid user id")

	// ErrSubjectTooLong is returned when subject exceeds maximum length.
	ErrSubjectTooLong = errors.New("discussions: subject too long")

	// ErrBodyTooLarge is returned when body exceeds maximum size.
	ErrBodyTooLarge = errors.New("discussions: body too large")

	// ErrTooManyRecipients is returned when recipient count exceeds the limit.
	ErrTooManyRecipients = errors.New("discussions: too many recipients")

	// ErrInvalidRecipient is returned when a recipient ID is invalid.
	ErrInvalidRecipient = errors.New("discussions: invalid recipient")
)

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("discussions: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDiscussion
}

// EventPublishError is returned when event publishing fails but the
// operation succeeded. The discussion was composed/read/deleted, but
// the event notification failed.
type EventPublishError struct {
	Event        string // The event name (e.g., "DiscussionStarted")
	DiscussionID string // The discussion ID the event was for
	Err          error  // The underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("discussions: event %s publish failed for discussion %s: %v", e.Event, e.DiscussionID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError checks if the error is an event publish error and
// returns details. Useful when WithEventErrorsFatal(true) is set but
// the caller still needs to know the operation itself succeeded.
func IsEventPublishError(err error) (*EventPublishError, bool) {
	var epe *EventPublishError
	if errors.As(err, &epe) {
		return epe, true
	}
	return nil, false
}

// IsRetryableError determines if an error is retryable.
// Returns true for temporary/transient errors, false for permanent errors.
// Handles both package-level and store-level errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	permanentErrors := []error{
		ErrNotFound,
		ErrUnauthorized,
		ErrInvalidDiscussion,
		ErrEmptyRecipients,
		ErrEmptyBody,
		ErrInvalidID,
		ErrInvalidUserID,
		ErrSubjectTooLong,
		ErrBodyTooLarge,
		ErrTooManyRecipients,
		ErrInvalidRecipient,
		ErrDuplicateEntry,
	}
	for _, permErr := range permanentErrors {
		if errors.Is(err, permErr) {
			return false
		}
	}

	// Store-level permanent errors, in case they bubble up unwrapped.
	storePermanentErrors := []error{
		store.ErrNotFound,
		store.ErrInvalidID,
		store.ErrDuplicateEntry,
		store.ErrEmptyRecipients,
		store.ErrEmptyBody,
	}
	for _, permErr := range storePermanentErrors {
		if errors.Is(err, permErr) {
			return false
		}
	}

	retryableErrors := []error{
		ErrNotConnected,
		store.ErrNotConnected,
		store.ErrTransactionFailed,
	}
	for _, retryErr := range retryableErrors {
		if errors.Is(err, retryErr) {
			return true
		}
	}

	// Unknown errors default to retryable as they might be transient
	// network or timeout issues.
	return true
}

// isNotFound reports whether err is a not-found error from either the
// package or the store level.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
