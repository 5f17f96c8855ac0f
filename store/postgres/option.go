package postgres

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second

	defaultDiscussionsTable = "discussions"
	defaultMessagesTable    = "discussion_messages"
	defaultRecipientsTable  = "discussion_recipients"
	defaultContactsTable    = "discussion_contacts"
)

// options holds PostgreSQL store configuration.
type options struct {
	discussions string
	messages    string
	recipients  string
	contacts    string
	timeout     time.Duration
	logger      *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		discussions: defaultDiscussionsTable,
		messages:    defaultMessagesTable,
		recipients:  defaultRecipientsTable,
		contacts:    defaultContactsTable,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithTablePrefix prepends prefix to every table name.
func WithTablePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.discussions = prefix + o.discussions
			o.messages = prefix + o.messages
			o.recipients = prefix + o.recipients
			o.contacts = prefix + o.contacts
		}
	}
}

// WithTimeout sets the operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
