// Package discussions provides a private messaging library for Go.
//
// A discussion is a conversation started by one user and delivered to
// one or more recipients. Each recipient tracks their own read and
// deleted state, so one user's actions never affect another's view.
// Contact records remember who has messaged whom and point at the most
// recent discussion between each pair. All functionality is exposed via
// interfaces, with pluggable storage backends (MongoDB, PostgreSQL,
// in-memory).
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	store := memory.New()
//
//	// Create discussions service
//	svc, err := discussions.NewService(
//	    discussions.WithStore(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes indexes/schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Get a client for a user
//	client := svc.Client("user123")
//
//	// Start a discussion
//	thread, err := client.Compose(ctx, discussions.ComposeRequest{
//	    Subject:      "Hello",
//	    Body:         "World",
//	    RecipientIDs: []string{"user456"},
//	})
//
// # Client Operations
//
//   - Compose: Start a discussion with a first message
//   - Reply: Add a message to an existing discussion
//   - MarkRead/Delete: Per-user state changes
//   - Inbox/Sent/Thread: Discussion views
//   - Contacts/ContactWith: Messaging counterparts
//   - UnreadCount/Stats: Aggregate counters
//
// # Storage Backends
//
// The store package provides implementations for:
//   - MongoDB (store/mongo) - accepts *mongo.Client
//   - PostgreSQL (store/postgres) - accepts *sql.DB
//   - In-memory (store/memory) - for testing
//
// # Events
//
// Discussions provides typed events for lifecycle notifications.
// Events use the github.com/rbaliyan/event/v3 library which supports
// multiple transports (Redis Streams, NATS, Kafka, in-memory channel).
//
// To enable events, pass WithRedisClient or WithEventTransport when
// creating the service:
//
//	svc, err := discussions.NewService(
//	    discussions.WithStore(store),
//	    discussions.WithRedisClient(redisClient),
//	)
//
// Events are automatically registered during Connect(). Access
// per-service events via the Events() method:
//
//	events := svc.Events()
//	events.DiscussionStarted.Subscribe(ctx, handler)
//	events.MessageAdded.Subscribe(ctx, handler)
//
// Available events:
//   - DiscussionStarted - when a discussion is composed
//   - MessageAdded - when a reply lands in a discussion
//   - DiscussionRead - when a recipient reads a discussion
//   - DiscussionDeleted - when a participant hides a discussion
package discussions
