package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a discussion, recipient row, or
	// contact cannot be found.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrDuplicateEntry is returned when a uniqueness constraint is
	// violated (recipient row per (user, discussion), contact per pair).
	ErrDuplicateEntry = errors.New("store: duplicate entry")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrEmptyRecipients is returned when a discussion is composed with
	// no recipients.
	ErrEmptyRecipients = errors.New("store: empty recipients")

	// ErrEmptyBody is returned when a message body is empty.
	ErrEmptyBody = errors.New("store: empty body")

	// ErrTransactionFailed is returned when a multi-row write could not
	// complete atomically. No partial state was persisted.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
