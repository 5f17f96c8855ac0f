package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/discussions/store"
)

const defaultLimit = 20

func (s *Store) GetDiscussion(ctx context.Context, id string) (*store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc discussionDoc
	if err := s.discussions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get discussion: %w", err)
	}

	d := docToDiscussion(&doc)
	return &d, nil
}

func (s *Store) GetThread(ctx context.Context, discussionID string) (*store.Thread, error) {
	d, err := s.GetDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	thread := &store.Thread{Discussion: *d}

	msgCursor, err := s.messages.Find(ctx,
		bson.M{"discussion_id": discussionID},
		mongoopts.Find().SetSort(bson.D{
			bson.E{Key: "sent_at", Value: -1},
			bson.E{Key: "_id", Value: -1},
		}))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	var msgDocs []messageDoc
	if err := msgCursor.All(ctx, &msgDocs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	for i := range msgDocs {
		thread.Messages = append(thread.Messages, docToMessage(&msgDocs[i]))
	}

	recCursor, err := s.recipients.Find(ctx,
		bson.M{"discussion_id": discussionID},
		mongoopts.Find().SetSort(bson.D{bson.E{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	var recDocs []recipientDoc
	if err := recCursor.All(ctx, &recDocs); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	for i := range recDocs {
		thread.Recipients = append(thread.Recipients, docToRecipient(&recDocs[i]))
	}

	return thread, nil
}

func (s *Store) GetRecipient(ctx context.Context, userID, discussionID string) (*store.Recipient, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(discussionID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc recipientDoc
	err := s.recipients.FindOne(ctx, bson.M{
		"user_id":       userID,
		"discussion_id": discussionID,
	}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}

	r := docToRecipient(&doc)
	return &r, nil
}

// Inbox joins recipient rows with their discussions through an
// aggregation pipeline, ordered by discussion creation time.
func (s *Store) Inbox(ctx context.Context, userID string, opts store.ListOptions) ([]store.InboxEntry, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	pipeline := mongo.Pipeline{
		bson.D{bson.E{Key: "$match", Value: bson.M{
			"user_id": userID,
			"status":  bson.M{"$ne": string(store.StatusDeleted)},
		}}},
		bson.D{bson.E{Key: "$lookup", Value: bson.M{
			"from":         s.opts.discussions,
			"localField":   "discussion_id",
			"foreignField": "_id",
			"as":           "discussion",
		}}},
		bson.D{bson.E{Key: "$unwind", Value: "$discussion"}},
		bson.D{bson.E{Key: "$sort", Value: bson.D{
			bson.E{Key: "discussion.created_at", Value: sortDir(opts.SortOrder)},
			bson.E{Key: "discussion._id", Value: -1},
		}}},
		bson.D{bson.E{Key: "$skip", Value: opts.Offset}},
		bson.D{bson.E{Key: "$limit", Value: opts.Limit}},
	}

	cursor, err := s.recipients.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}

	var docs []struct {
		recipientDoc `bson:",inline"`
		Discussion   discussionDoc `bson:"discussion"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode inbox: %w", err)
	}

	entries := make([]store.InboxEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, store.InboxEntry{
			Recipient:  docToRecipient(&docs[i].recipientDoc),
			Discussion: docToDiscussion(&docs[i].Discussion),
		})
	}
	return entries, nil
}

func (s *Store) SentDiscussions(ctx context.Context, senderID string, opts store.ListOptions) ([]store.Discussion, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	filter := bson.M{
		"sender_id":         senderID,
		"sender_deleted_at": bson.M{"$exists": false},
	}

	cursor, err := s.discussions.Find(ctx, filter,
		mongoopts.Find().
			SetSort(bson.D{
				bson.E{Key: "created_at", Value: sortDir(opts.SortOrder)},
				bson.E{Key: "_id", Value: -1},
			}).
			SetSkip(int64(opts.Offset)).
			SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, fmt.Errorf("query sent: %w", err)
	}

	var docs []discussionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sent: %w", err)
	}

	out := make([]store.Discussion, 0, len(docs))
	for i := range docs {
		out = append(out, docToDiscussion(&docs[i]))
	}
	return out, nil
}

func (s *Store) GetContact(ctx context.Context, userA, userB string) (*store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc contactDoc
	err := s.contacts.FindOne(ctx, bson.M{"pair_key": store.PairKey(userA, userB)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}

	c := docToContact(&doc)
	return &c, nil
}

func (s *Store) ContactsFor(ctx context.Context, userID string, opts store.ListOptions) ([]store.Contact, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts = opts.Normalize(defaultLimit)

	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": userID},
		bson.M{"to_user_id": userID},
	}}

	cursor, err := s.contacts.Find(ctx, filter,
		mongoopts.Find().
			SetSort(bson.D{
				bson.E{Key: "updated_at", Value: sortDir(opts.SortOrder)},
				bson.E{Key: "_id", Value: -1},
			}).
			SetSkip(int64(opts.Offset)).
			SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	var docs []contactDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}

	out := make([]store.Contact, 0, len(docs))
	for i := range docs {
		out = append(out, docToContact(&docs[i]))
	}
	return out, nil
}

// DiscussionStats aggregates the recipient-side counters with a single
// group stage and the sent counter with a count query.
func (s *Store) DiscussionStats(ctx context.Context, userID string) (*store.DiscussionStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{bson.E{Key: "$match", Value: bson.M{"user_id": userID}}},
		bson.D{bson.E{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.recipients.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("query recipient stats: %w", err)
	}

	var groups []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode recipient stats: %w", err)
	}

	stats := &store.DiscussionStats{}
	for _, g := range groups {
		switch store.RecipientStatus(g.Status) {
		case store.StatusUnread:
			stats.UnreadCount += g.Count
			stats.InboxTotal += g.Count
		case store.StatusRead:
			stats.InboxTotal += g.Count
		case store.StatusDeleted:
			stats.DeletedCount += g.Count
		}
	}

	sent, err := s.discussions.CountDocuments(ctx, bson.M{
		"sender_id":         userID,
		"sender_deleted_at": bson.M{"$exists": false},
	})
	if err != nil {
		return nil, fmt.Errorf("query sent stats: %w", err)
	}
	stats.SentTotal = sent

	return stats, nil
}
