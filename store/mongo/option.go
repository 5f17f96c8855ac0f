package mongo

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultDatabase = "discussions"
	DefaultTimeout  = 10 * time.Second

	defaultDiscussionsCollection = "discussions"
	defaultMessagesCollection    = "discussion_messages"
	defaultRecipientsCollection  = "discussion_recipients"
	defaultContactsCollection    = "discussion_contacts"
)

// options holds MongoDB store configuration.
type options struct {
	database    string
	discussions string
	messages    string
	recipients  string
	contacts    string
	timeout     time.Duration
	logger      *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		database:    DefaultDatabase,
		discussions: defaultDiscussionsCollection,
		messages:    defaultMessagesCollection,
		recipients:  defaultRecipientsCollection,
		contacts:    defaultContactsCollection,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a MongoDB store.
type Option func(*options)

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollectionPrefix prepends prefix to every collection name.
func WithCollectionPrefix(prefix string) Option {
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
