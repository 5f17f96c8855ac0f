// Package mongo provides a MongoDB implementation of store.Store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/discussions/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	discussions *mongo.Collection
	messages    *mongo.Collection
	recipients  *mongo.Collection
	contacts    *mongo.Collection
	opts        *options
	connected   int32
	logger      *slog.Logger
}

// New creates a new MongoDB store with the provided client.
// Call Connect() to initialize the collections and indexes.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Connect initializes the database, collections, and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.client == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("mongo: client is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("mongo ping: %w", err)
	}

	s.db = s.client.Database(s.opts.database)
	s.discussions = s.db.Collection(s.opts.discussions)
	s.messages = s.db.Collection(s.opts.messages)
	s.recipients = s.db.Collection(s.opts.recipients)
	s.contacts = s.db.Collection(s.opts.contacts)

	if err := s.ensureIndexes(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure indexes: %w", err)
	}

	s.logger.Info("connected to MongoDB", "database", s.opts.database)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureIndexes creates required indexes. The unique indexes on
// (user_id, discussion_id) and pair_key carry the concurrency model:
// a duplicate-key error on insert means someone else won the race.
func (s *Store) ensureIndexes(ctx context.Context) error {
	discussionIdx := []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "sender_id", Value: 1}, bson.E{Key: "created_at", Value: -1}}},
	}
	if _, err := s.discussions.Indexes().CreateMany(ctx, discussionIdx); err != nil {
		return fmt.Errorf("discussion indexes: %w", err)
	}

	messageIdx := []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "discussion_id", Value: 1}, bson.E{Key: "sent_at", Value: -1}}},
	}
	if _, err := s.messages.Indexes().CreateMany(ctx, messageIdx); err != nil {
		return fmt.Errorf("message indexes: %w", err)
	}

	recipientIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "discussion_id", Value: 1}},
			Options: mongoopts.Index().SetUnique(true),
		},
		{Keys: bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "status", Value: 1}}},
	}
	if _, err := s.recipients.Indexes().CreateMany(ctx, recipientIdx); err != nil {
		return fmt.Errorf("recipient indexes: %w", err)
	}

	contactIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "pair_key", Value: 1}},
			Options: mongoopts.Index().SetUnique(true),
		},
		{Keys: bson.D{bson.E{Key: "from_user_id", Value: 1}, bson.E{Key: "updated_at", Value: -1}}},
		{Keys: bson.D{bson.E{Key: "to_user_id", Value: 1}, bson.E{Key: "updated_at", Value: -1}}},
	}
	if _, err := s.contacts.Indexes().CreateMany(ctx, contactIdx); err != nil {
		return fmt.Errorf("contact indexes: %w", err)
	}

	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// isTransactionNotSupported checks if the error indicates transactions
// aren't supported (standalone deployments).
func isTransactionNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 263 || cmdErr.Code == 20
	}
	return false
}

func sortDir(o store.SortOrder) int {
	if o == store.SortAsc {
		return 1
	}
	return -1
}
