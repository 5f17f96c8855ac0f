package discussions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/discussions/store"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"
)

// Type aliases for commonly used store types.
// These allow users to work with the discussions package without
// importing store directly.
type (
	ListOptions     = store.ListOptions
	SortOrder       = store.SortOrder
	Discussion      = store.Discussion
	Message         = store.Message
	Recipient       = store.Recipient
	Contact         = store.Contact
	Thread          = store.Thread
	InboxEntry      = store.InboxEntry
	DiscussionStats = store.DiscussionStats
)

// Re-exported sort order constants.
const (
	SortAsc  = store.SortAsc
	SortDesc = store.SortDesc
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// Service manages the discussions system (server-side).
// It handles connections to storage and creates per-user clients.
//
// Composed of:
//   - ServiceHealth: Health and state queries (IsConnected)
type Service interface {
	ServiceHealth

	// Connect establishes connections to storage backends.
	Connect(ctx context.Context) error
	// Close closes all connections.
	Close(ctx context.Context) error
	// Client returns a discussions client for the given user.
	// The returned client shares the service's connections.
	Client(userID string) Client
	// Events returns per-service event instances for subscribing and publishing.
	// Each service has its own events bound to its own event bus, enabling
	// independent event routing and parallel testing.
	Events() *ServiceEvents
}

// Composer starts discussions and adds replies.
type Composer interface {
	// Compose starts a new discussion with a first message,
	// delivered to every recipient in the request.
	Compose(ctx context.Context, req ComposeRequest) (*Thread, error)
	// Reply adds a message to an existing discussion.
	// The caller must be a participant.
	Reply(ctx context.Context, discussionID string, body string) (*Message, error)
}

// Marker mutates per-recipient discussion state.
type Marker interface {
	// MarkRead marks a discussion as read for the calling user.
	// Already-read and deleted discussions are left unchanged.
	MarkRead(ctx context.Context, discussionID string) (*Recipient, error)
	// Delete removes a discussion from the calling user's views.
	// Senders hide their sent copy, recipients mark their inbox entry
	// deleted. The discussion itself is never destroyed.
	Delete(ctx context.Context, discussionID string) error
	// DeleteMessage hides a single message the calling user sent.
	DeleteMessage(ctx context.Context, discussionID, messageID string) error
}

// Lister provides paginated discussion views.
type Lister interface {
	// Inbox lists discussions the user received, newest first by default.
	Inbox(ctx context.Context, opts ListOptions) ([]InboxEntry, error)
	// Sent lists discussions the user started, newest first by default.
	Sent(ctx context.Context, opts ListOptions) ([]Discussion, error)
	// Thread returns a discussion with its messages and recipients.
	// The caller must be a participant.
	Thread(ctx context.Context, discussionID string) (*Thread, error)
}

// ContactReader provides access to the user's contact list.
type ContactReader interface {
	// Contacts lists users this user has exchanged messages with,
	// most recently active first by default.
	Contacts(ctx context.Context, opts ListOptions) ([]Contact, error)
	// ContactWith returns the contact record for a specific counterpart,
	// or ErrNotFound if the two users never exchanged messages.
	ContactWith(ctx context.Context, otherUserID string) (*Contact, error)
}

// StatsReader provides aggregate counters.
type StatsReader interface {
	// UnreadCount returns the number of unread inbox discussions.
	UnreadCount(ctx context.Context) (int64, error)
	// Stats returns inbox, unread, deleted and sent counters.
	Stats(ctx context.Context) (*DiscussionStats, error)
}

// Client provides discussion operations for a single user.
//
// Composed of focused interfaces:
//   - Composer: Compose, Reply
//   - Marker: MarkRead, Delete, DeleteMessage
//   - Lister: Inbox, Sent, Thread
//   - ContactReader: Contacts, ContactWith
//   - StatsReader: UnreadCount, Stats
type Client interface {
	UserID() string
	Composer
	Marker
	Lister
	ContactReader
	StatsReader
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store      store.Store
	logger     *slog.Logger
	opts       *options
	state      int32 // stateDisconnected, stateConnecting, or stateConnected
	otel       *otelInstrumentation
	composeSem *semaphore.Weighted // Limits concurrent composes to prevent resource exhaustion
	eventBus   *event.Bus
	events     *ServiceEvents
}

// NewService creates a new discussions service.
// Call Connect() to establish connections to backends.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:      o.store,
		logger:     o.logger,
		opts:       o,
		otel:       otelInstr,
		composeSem: semaphore.NewWeighted(int64(o.maxConcurrentComposes)),
	}, nil
}

// Events returns per-service event instances for subscribing and publishing.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Connect establishes connections to storage backends.
func (s *service) Connect(ctx context.Context) error {
	// Three-state transition prevents Client() operations from seeing
	// partial initialization: disconnected -> connecting -> connected.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	// Reset to disconnected on failure, set to connected on success
	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	success = true
	s.logger.Info("discussions service connected")
	return nil
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// initEventBus initializes the event bus for this service.
// Each service creates its own bus with its own event instances.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "discussions"
	}
	// Each bus needs a unique name, so append a counter suffix
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close closes connections to storage backends.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight compose operations to complete. After the state
	// flips to disconnected, no new operations can start because
	// checkAccess fails. Acquiring all semaphore slots waits for the
	// existing operations to finish.
	s.logger.Info("waiting for in-flight operations to complete...", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.composeSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentComposes)); err != nil {
		s.logger.Warn("timeout waiting for in-flight operations, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.composeSem.Release(int64(s.opts.maxConcurrentComposes))
		s.logger.Info("all in-flight operations completed")
	}

	// Close the event bus only when using a real transport. A noop bus
	// holds no resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// Client returns a discussions client for the given user.
func (s *service) Client(userID string) Client {
	return &userClient{
		userID:      userID,
		service:     s,
		validUserID: isValidUserID(userID),
	}
}

// userClient is the default Client implementation, bound to one user.
type userClient struct {
	userID      string
	service     *service
	validUserID bool // set by Client() after validation
}

// UserID returns the user ID of this client.
func (c *userClient) UserID() string {
	return c.userID
}

// isConnected checks if the service is connected.
func (c *userClient) isConnected() bool {
	return atomic.LoadInt32(&c.service.state) == stateConnected
}

// checkAccess verifies the client is ready for operations.
// Returns ErrNotConnected if the service isn't connected,
// or ErrInvalidUserID if the user ID failed validation.
func (c *userClient) checkAccess() error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	if !c.validUserID {
		return ErrInvalidUserID
	}
	return nil
}
