package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/discussions/store"
)

// MarkRead transitions an unread recipient row to read. The filter on
// status makes the update a no-op when the row is already read or
// deleted; the first read wins.
func (s *Store) MarkRead(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{
		"user_id":       userID,
		"discussion_id": discussionID,
		"status":        string(store.StatusUnread),
	}
	update := bson.M{"$set": bson.M{
		"status":  string(store.StatusRead),
		"read_at": at.UTC(),
	}}

	var doc recipientDoc
	err := s.recipients.FindOneAndUpdate(ctx, filter, update,
		mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After),
	).Decode(&doc)
	if err == nil {
		r := docToRecipient(&doc)
		return &r, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, fmt.Errorf("mark read: %w", err)
	}

	// Already read or deleted; return the row unchanged.
	r, err := s.GetRecipient(ctx, userID, discussionID)
	return r, false, err
}

// MarkDeleted transitions a recipient row to deleted. Idempotent; the
// row is never removed.
func (s *Store) MarkDeleted(ctx context.Context, userID, discussionID string, at time.Time) (*store.Recipient, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{
		"user_id":       userID,
		"discussion_id": discussionID,
		"status":        bson.M{"$ne": string(store.StatusDeleted)},
	}
	update := bson.M{"$set": bson.M{
		"status":     string(store.StatusDeleted),
		"deleted_at": at.UTC(),
	}}

	var doc recipientDoc
	err := s.recipients.FindOneAndUpdate(ctx, filter, update,
		mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After),
	).Decode(&doc)
	if err == nil {
		r := docToRecipient(&doc)
		return &r, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, fmt.Errorf("mark deleted: %w", err)
	}

	r, err := s.GetRecipient(ctx, userID, discussionID)
	return r, false, err
}

// SoftDeleteDiscussion sets the sender's delete marker once; later
// calls keep the original timestamp and report no transition.
func (s *Store) SoftDeleteDiscussion(ctx context.Context, discussionID string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return s.softDeleteDoc(ctx, s.discussions, discussionID, at)
}

// SoftDeleteMessage sets the sender's delete marker on a single message.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(messageID); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	_, err := s.softDeleteDoc(ctx, s.messages, messageID, at)
	return err
}

func (s *Store) softDeleteDoc(ctx context.Context, coll *mongo.Collection, id string, at time.Time) (bool, error) {
	// Filter on the marker being absent so repeats keep the original
	// timestamp.
	filter := bson.M{
		"_id":               id,
		"sender_deleted_at": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"sender_deleted_at": at.UTC()}}

	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("soft delete: %w", err)
	}
	if result.MatchedCount == 0 {
		// Distinguish missing from already deleted.
		count, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return false, fmt.Errorf("soft delete lookup: %w", err)
		}
		if count == 0 {
			return false, store.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// UpsertContact points the pair's contact record at discussionID,
// creating it on first contact.
func (s *Store) UpsertContact(ctx context.Context, fromUserID, toUserID, discussionID string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	count, err := s.discussions.CountDocuments(ctx, bson.M{"_id": discussionID})
	if err != nil {
		return nil, fmt.Errorf("get discussion: %w", err)
	}
	if count == 0 {
		return nil, store.ErrNotFound
	}

	now := time.Now().UTC()
	filter := bson.M{"pair_key": store.PairKey(fromUserID, toUserID)}
	update := bson.M{
		"$set": bson.M{
			"latest_discussion_id": discussionID,
			"updated_at":           now,
		},
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"from_user_id": fromUserID,
			"to_user_id":   toUserID,
			"pair_key":     store.PairKey(fromUserID, toUserID),
		},
	}

	var doc contactDoc
	err = s.contacts.FindOneAndUpdate(ctx, filter, update,
		mongoopts.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(mongoopts.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("upsert contact: %w", err)
	}

	c := docToContact(&doc)
	return &c, nil
}
